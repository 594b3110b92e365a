package depthfilter

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
	"go.viam.com/test"
)

// relativeError is used instead of test.ShouldAlmostEqual, which only
// checks absolute difference; the geometry scenario below wants a tight
// relative bound.
func relativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

func TestComputeMeasurementGeometry(t *testing.T) {
	tRefCur := NewPose(quat.Number{Real: 1}, r3.Vector{X: 0.1, Y: 0, Z: 0})
	f := r3.Vector{X: 0, Y: 0, Z: 1}
	z := 5.0
	errorAngle := 1e-3

	meas := ComputeMeasurement(tRefCur, f, z, errorAngle)

	wantX := 0.2
	wantTau2 := 0.00011150948109928386

	test.That(t, relativeError(meas.X, wantX), test.ShouldBeLessThan, 1e-9)
	test.That(t, relativeError(meas.Tau2, wantTau2), test.ShouldBeLessThan, 1e-9)
}

func TestComputeTauIncreasesWithErrorAngle(t *testing.T) {
	tRefCur := NewPose(quat.Number{Real: 1}, r3.Vector{X: 0.1, Y: 0, Z: 0})
	f := r3.Vector{X: 0, Y: 0, Z: 1}

	small := computeTau(tRefCur, f, 5.0, 1e-4)
	large := computeTau(tRefCur, f, 5.0, 1e-2)

	test.That(t, large, test.ShouldBeGreaterThan, small)
}

func TestPxErrorAngleDecreasesWithFocal(t *testing.T) {
	wide := pxErrorAngle(200)
	narrow := pxErrorAngle(2000)

	test.That(t, wide, test.ShouldBeGreaterThan, narrow)
}
