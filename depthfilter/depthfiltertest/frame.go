// Package depthfiltertest provides injectable fakes for the four
// collaborator interfaces depthfilter depends on (Frame, Camera,
// FeatureDetector, Matcher). Each fake is a plain struct: fixed values are
// set through exported fields, and the behaviors tests vary are exposed as
// overridable *Func fields that fall back to a simple built-in default when
// left nil.
package depthfiltertest

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/forsterlab/depthfilter/depthfilter"
)

// Frame is a fake depthfilter.Frame.
type Frame struct {
	PoseValue     depthfilter.Pose
	Keyframe      bool
	PyramidValue  depthfilter.Pyramid
	CameraValue   depthfilter.Camera
	FeaturesValue []*depthfilter.Feature

	// ProjectToPixelFunc overrides ProjectToPixel. If nil, the point is
	// projected with a trivial identity mapping (x, y) -> (x, y), which is
	// enough for tests that only care about in-frame/out-of-frame bounds.
	ProjectToPixelFunc func(xyz r3.Vector) (image.Point, bool)
}

// Pose returns f.PoseValue.
func (f *Frame) Pose() depthfilter.Pose { return f.PoseValue }

// IsKeyframe returns f.Keyframe.
func (f *Frame) IsKeyframe() bool { return f.Keyframe }

// Pyramid returns f.PyramidValue.
func (f *Frame) Pyramid() depthfilter.Pyramid { return f.PyramidValue }

// Camera returns f.CameraValue.
func (f *Frame) Camera() depthfilter.Camera { return f.CameraValue }

// Features returns f.FeaturesValue.
func (f *Frame) Features() []*depthfilter.Feature { return f.FeaturesValue }

// ProjectToPixel calls f.ProjectToPixelFunc, or a trivial identity
// projection if nil.
func (f *Frame) ProjectToPixel(xyz r3.Vector) (image.Point, bool) {
	if f.ProjectToPixelFunc != nil {
		return f.ProjectToPixelFunc(xyz)
	}
	return image.Point{X: int(xyz.X), Y: int(xyz.Y)}, true
}
