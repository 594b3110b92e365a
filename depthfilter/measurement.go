package depthfilter

import (
	"math"

	"github.com/golang/geo/r3"
)

// minDepthDenominator guards the tau_inv division against a match depth
// equal to or smaller than one tau of uncertainty.
const minDepthDenominator = 1e-7

// pxErrorAngle returns the angular reprojection error (in radians)
// contributed by one pixel of uncertainty, given a camera's focal length,
// by the law of chords: 2*atan(1/(2*focal)).
func pxErrorAngle(focal float64) float64 {
	return 2 * math.Atan(1/(2*focal))
}

// computeTau returns tau, the one-sigma depth uncertainty contributed by a
// one-pixel reprojection error, via the law of sines on the epipolar
// triangle formed by the translation between frames, the reference bearing,
// and the matched depth.
func computeTau(tRefCur Pose, f r3.Vector, z, errorAngle float64) float64 {
	t := tRefCur.Translation
	a := f.Mul(z).Sub(t)
	tNorm := t.Norm()
	aNorm := a.Norm()

	alpha := math.Acos(f.Dot(t) / tNorm)
	beta := math.Acos(a.Dot(t.Mul(-1)) / (tNorm * aNorm))
	betaPlus := beta + errorAngle
	gammaPlus := math.Pi - alpha - betaPlus
	zPlus := tNorm * math.Sin(betaPlus) / math.Sin(gammaPlus)
	return zPlus - z
}

// Measurement is the inverse-depth observation and its variance derived
// from a single epipolar match.
type Measurement struct {
	X    float64 // 1/z
	Tau2 float64 // measurement variance
}

// ComputeMeasurement derives the inverse-depth measurement and its variance
// from a matched depth z: tau is computed geometrically, then converted to
// inverse-depth uncertainty.
func ComputeMeasurement(tRefCur Pose, f r3.Vector, z, errorAngle float64) Measurement {
	tau := computeTau(tRefCur, f, z, errorAngle)
	tauInv := 0.5 * (1/math.Max(minDepthDenominator, z-tau) - 1/(z+tau))
	return Measurement{X: 1 / z, Tau2: tauInv * tauInv}
}
