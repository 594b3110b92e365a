package depthfilter

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid-body transform, world->frame when used as a Frame's pose
// (matching Frame.Pose()'s T_f_w convention). Composition and inversion
// follow standard SE3 semantics: (a.Compose(b)).Apply(v) ==
// a.Apply(b.Apply(v)).
type Pose struct {
	Orientation quat.Number
	Translation r3.Vector
}

// NewPose returns a Pose with the given orientation and translation. The
// orientation must be a unit quaternion.
func NewPose(orientation quat.Number, translation r3.Vector) Pose {
	return Pose{Orientation: orientation, Translation: translation}
}

// Rotate applies this pose's rotation (and only its rotation) to v.
func (p Pose) Rotate(v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rq := quat.Mul(quat.Mul(p.Orientation, vq), quat.Conj(p.Orientation))
	return r3.Vector{X: rq.Imag, Y: rq.Jmag, Z: rq.Kmag}
}

// Apply transforms v by this pose's full rotation and translation.
func (p Pose) Apply(v r3.Vector) r3.Vector {
	return p.Rotate(v).Add(p.Translation)
}

// Inverse returns the inverse transform.
func (p Pose) Inverse() Pose {
	qInv := quat.Conj(p.Orientation)
	inv := Pose{Orientation: qInv}
	inv.Translation = inv.Rotate(p.Translation.Mul(-1))
	return inv
}

// Compose returns the transform equivalent to applying other first, then p.
func (p Pose) Compose(other Pose) Pose {
	return Pose{
		Orientation: quat.Mul(p.Orientation, other.Orientation),
		Translation: p.Rotate(other.Translation).Add(p.Translation),
	}
}
