package depthfilter

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Update applies one step of the Vogiatzis-Hernandez Beta-Gaussian-Uniform
// update to seed, given a new inverse-depth measurement x and its variance
// tau2. If the combined standard deviation is NaN the seed is left
// unmodified — this is the only early return; every other path leaves the
// seed's invariants (a, b, sigma2 > 0, mu finite) intact.
//
// Arithmetic on the seed's own fields is single precision, matching the
// original SVO implementation this is ported from. Only the square root of
// the combined variance and the Gaussian PDF evaluation go through float64
// (math.Sqrt and gonum's distuv have no float32 variants); their results are
// narrowed back to float32 immediately, and every other step is computed in
// float32.
func Update(seed *Seed, x, tau2 float32) {
	sigma := seed.Sigma2 + tau2
	sigmaSqrt := float32(math.Sqrt(float64(sigma)))
	if math.IsNaN(float64(sigmaSqrt)) {
		return
	}

	a, b := seed.A, seed.B
	mu, sigma2, zRange := seed.Mu, seed.Sigma2, seed.ZRange

	prob := float32(distuv.Normal{Mu: float64(mu), Sigma: float64(sigmaSqrt)}.Prob(float64(x)))

	s2 := 1 / (1/sigma2 + 1/tau2)
	m := s2 * (mu/sigma2 + x/tau2)

	c1 := a / (a + b) * prob
	c2 := b / (a + b) / zRange
	normConst := c1 + c2
	c1 /= normConst
	c2 /= normConst

	fMoment := c1*(a+1)/(a+b+1) + c2*a/(a+b+1)
	eMoment := c1*(a+1)*(a+2)/((a+b+1)*(a+b+2)) + c2*a*(a+1)/((a+b+1)*(a+b+2))

	muNew := c1*m + c2*mu
	sigma2New := c1*(s2+m*m) + c2*(sigma2+mu*mu) - muNew*muNew

	seed.Mu = muNew
	seed.Sigma2 = sigma2New
	seed.A = (eMoment - fMoment) / (fMoment - eMoment/fMoment)
	seed.B = seed.A * (1 - fMoment) / fMoment
}
