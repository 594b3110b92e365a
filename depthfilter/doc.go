// Package depthfilter implements the probabilistic depth-estimation core of
// a semi-direct visual odometry pipeline.
//
// It maintains a population of inverse-depth hypotheses ("seeds") attached
// to 2D features observed on keyframes, and refines each hypothesis against
// every subsequent frame using a Beta-Gaussian-Uniform mixture update until
// the hypothesis either converges to a 3D landmark or is discarded. The
// filter owns a single background worker that drains a bounded frame queue;
// it also supports running inline on the caller's goroutine when no worker
// has been started, which is the mode exercised by most of this package's
// tests.
//
// Camera projection, feature detection, and epipolar matching are treated as
// external collaborators (Frame, Camera, FeatureDetector, Matcher); see
// collaborators.go. Fakes for all four live in the depthfiltertest
// subpackage.
package depthfilter
