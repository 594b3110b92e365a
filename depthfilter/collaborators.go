package depthfilter

import (
	"image"

	"github.com/golang/geo/r3"
)

// Pyramid is an opaque image pyramid handle owned by a Frame. The depth
// filter never inspects it directly; it only forwards it to FeatureDetector
// and Matcher.
type Pyramid any

// Frame is the reference-frame collaborator: pyramid construction and image
// ownership live outside this package.
type Frame interface {
	// Pose returns T_f_w, the rigid transform from world coordinates into
	// this frame's coordinates.
	Pose() Pose
	// IsKeyframe reports whether this frame was selected by the front end
	// as a reference against which new seeds should be spawned.
	IsKeyframe() bool
	// Pyramid returns the image pyramid backing detection and matching.
	Pyramid() Pyramid
	// Camera returns this frame's camera model.
	Camera() Camera
	// Features returns this frame's current 2D feature observations.
	Features() []*Feature
	// ProjectToPixel projects a camera-space 3D point to a pixel
	// coordinate (f2c). ok is false if the projection is degenerate (e.g.
	// the point is at the camera center).
	ProjectToPixel(xyz r3.Vector) (image.Point, bool)
}

// Camera is the projection/unprojection collaborator.
type Camera interface {
	// ErrorMultiplier2 returns the focal length used to derive the
	// one-pixel reprojection error angle.
	ErrorMultiplier2() float64
	// IsInFrame reports whether a pixel coordinate lies within image
	// bounds.
	IsInFrame(px image.Point) bool
	// Unproject returns the unit-length bearing vector (cam2world) for a
	// pixel coordinate.
	Unproject(px image.Point) r3.Vector
}

// FeaturePoint is a detected 2D point awaiting seed initialization.
type FeaturePoint struct {
	X, Y  float64
	Level int
}

// OccupancyGrid is the feature detector's occupancy bitmap, reset
// externally between keyframes.
type OccupancyGrid interface {
	SetOccupied(x, y int)
}

// FeatureDetector is the feature-detection and occupancy-grid collaborator.
type FeatureDetector interface {
	// Detect runs detection on pyr and returns newly found feature points.
	Detect(pyr Pyramid) ([]FeaturePoint, error)
	// Grid returns the occupancy grid used to avoid re-seeding locations
	// that already have a live seed or landmark.
	Grid() OccupancyGrid
}

// MatchResult is a successful epipolar match.
type MatchResult struct {
	Z           float64
	PxCur       image.Point
	SearchLevel int
}

// Matcher is the epipolar patch-matching collaborator. It holds internal
// scratch state and is not reentrant; only the depth filter's worker uses
// it.
type Matcher interface {
	// FindEpipolarMatchDirect searches for refFeature's match in cur,
	// within the depth range [depthMin, depthMax] around depthEstimate.
	// ok is false if no match was found.
	FindEpipolarMatchDirect(
		ref, cur Frame,
		refFeature *Feature,
		depthEstimate, depthMin, depthMax float64,
	) (MatchResult, bool)
}

// ConvergedPointSink receives landmarks as seeds converge. It is invoked
// while the store lock is held, from the depth filter's worker goroutine or,
// when no worker is running, from the caller's goroutine. Calls from one
// filter are serialized by that lock. It must not call back into the
// DepthFilter synchronously, and it must not block for long.
type ConvergedPointSink func(pointWorld r3.Vector, feature *Feature, sigma2 float32)
