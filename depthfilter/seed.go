package depthfilter

import (
	"image"

	"github.com/golang/geo/r3"
)

// Feature is a single 2D observation on its reference frame. A Seed
// exclusively owns its Feature; the RefFrame it points at is a non-owning
// handle — the frame outlives all seeds created from it, and is only ever
// removed via SeedStore.RemoveByFrame.
type Feature struct {
	// Px is the pixel coordinate of the observation on RefFrame.
	Px image.Point
	// F is the unit-length bearing vector corresponding to Px.
	F r3.Vector
	// Level is the pyramid level the observation was detected at.
	Level int
	// RefFrame is the frame this observation was made on.
	RefFrame Frame
}

// Seed is an inverse-depth hypothesis for one feature observation, modelled
// as a Beta-distributed inlier probability over a Gaussian/Uniform mixture
// on inverse depth (Vogiatzis & Hernandez, 2011).
type Seed struct {
	// ID is a process-wide (per-filter) unique, monotonically assigned
	// identifier.
	ID uint64
	// BatchID is the keyframe-initialization batch this seed belongs to.
	BatchID uint64
	// Feature is the owned reference-frame observation this seed refines.
	Feature *Feature

	// A, B are the Beta-distribution shape parameters modelling the
	// probability that future measurements are inliers.
	A, B float32
	// Mu is the current mean of the inverse-depth estimate.
	Mu float32
	// ZRange is the prior range of inverse depth (1/depth_min), fixed for
	// the seed's lifetime; it is also the width of the Uniform outlier
	// component.
	ZRange float32
	// Sigma2 is the current variance of the inverse-depth estimate.
	Sigma2 float32
}

// newSeed constructs a seed from a fresh feature observation and the
// keyframe's estimated depth prior: mu = 1/depthMean, zRange = 1/depthMin,
// sigma2 = zRange^2/36.
func newSeed(id, batchID uint64, feature *Feature, depthMean, depthMin float64) *Seed {
	zRange := float32(1.0 / depthMin)
	return &Seed{
		ID:      id,
		BatchID: batchID,
		Feature: feature,
		A:       10,
		B:       10,
		Mu:      float32(1.0 / depthMean),
		ZRange:  zRange,
		Sigma2:  zRange * zRange / 36,
	}
}
