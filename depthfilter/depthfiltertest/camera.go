package depthfiltertest

import (
	"image"

	"github.com/golang/geo/r3"
)

// Camera is a fake depthfilter.Camera: a simple pinhole model wide/tall
// enough to bounds-check against, with an overridable unprojection.
type Camera struct {
	Focal         float64
	Width, Height int

	// UnprojectFunc overrides Unproject. If nil, pixels unproject to the
	// forward-looking unit bearing (0, 0, 1) regardless of pixel
	// coordinate — sufficient for tests that drive bearings explicitly via
	// a Feature instead.
	UnprojectFunc func(px image.Point) r3.Vector
}

// ErrorMultiplier2 returns c.Focal.
func (c *Camera) ErrorMultiplier2() float64 { return c.Focal }

// IsInFrame reports whether px lies within [0, Width) x [0, Height).
func (c *Camera) IsInFrame(px image.Point) bool {
	return px.X >= 0 && px.X < c.Width && px.Y >= 0 && px.Y < c.Height
}

// Unproject calls c.UnprojectFunc, or returns (0, 0, 1) if nil.
func (c *Camera) Unproject(px image.Point) r3.Vector {
	if c.UnprojectFunc != nil {
		return c.UnprojectFunc(px)
	}
	return r3.Vector{X: 0, Y: 0, Z: 1}
}
