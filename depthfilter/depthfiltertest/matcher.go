package depthfiltertest

import "github.com/forsterlab/depthfilter/depthfilter"

// Matcher is a fake depthfilter.Matcher.
type Matcher struct {
	// FindFunc overrides FindEpipolarMatchDirect. If nil, every match
	// fails.
	FindFunc func(ref, cur depthfilter.Frame, refFeature *depthfilter.Feature, depthEstimate, depthMin, depthMax float64) (depthfilter.MatchResult, bool)
}

// FindEpipolarMatchDirect calls m.FindFunc, or reports failure if unset.
func (m *Matcher) FindEpipolarMatchDirect(
	ref, cur depthfilter.Frame,
	refFeature *depthfilter.Feature,
	depthEstimate, depthMin, depthMax float64,
) (depthfilter.MatchResult, bool) {
	if m.FindFunc != nil {
		return m.FindFunc(ref, cur, refFeature, depthEstimate, depthMin, depthMax)
	}
	return depthfilter.MatchResult{}, false
}
