package depthfilter

// Options configures a DepthFilter. All fields are static after
// construction.
type Options struct {
	// MaxAgeKeyframes bounds how many keyframe batches a seed may survive
	// without converging before it is discarded.
	MaxAgeKeyframes uint64

	// SeedConvergenceSigma2Thresh is sigma_thresh: a seed converges once
	// sqrt(sigma2) drops below z_range/SeedConvergenceSigma2Thresh. Lower
	// values converge earlier (looser); higher values converge later
	// (tighter landmarks).
	SeedConvergenceSigma2Thresh float64

	// Verbose enables diagnostic logging of seed-population changes.
	Verbose bool
}

// DefaultOptions returns the conservative defaults used when a caller does
// not override them.
func DefaultOptions() Options {
	return Options{
		MaxAgeKeyframes:             10,
		SeedConvergenceSigma2Thresh: 200,
		Verbose:                     false,
	}
}
