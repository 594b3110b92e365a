package depthfilter

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// DepthFilter maintains and refines the population of depth-hypothesis
// seeds described in package doc.go. A single background worker drains a
// bounded FrameIntake; when no worker has been started, SubmitFrame and
// SubmitKeyframe perform the corresponding work inline on the caller's
// goroutine instead, so the filter behaves identically in single-threaded
// tests and in production.
type DepthFilter struct {
	store  *SeedStore
	intake *FrameIntake

	detector FeatureDetector
	matcher  Matcher
	sink     ConvergedPointSink

	opts    Options
	logger  golog.Logger
	metrics *Metrics

	mu                      sync.Mutex
	running                 bool
	cancelFunc              context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// New constructs a DepthFilter. detector, matcher, and sink must be
// non-nil; the filter does not start its worker until Start is called.
func New(detector FeatureDetector, matcher Matcher, sink ConvergedPointSink, opts Options, logger golog.Logger, metrics *Metrics) (*DepthFilter, error) {
	if detector == nil {
		return nil, errors.New("depthfilter: FeatureDetector must not be nil")
	}
	if matcher == nil {
		return nil, errors.New("depthfilter: Matcher must not be nil")
	}
	if sink == nil {
		return nil, errors.New("depthfilter: ConvergedPointSink must not be nil")
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &DepthFilter{
		store:    NewSeedStore(),
		intake:   NewFrameIntake(),
		detector: detector,
		matcher:  matcher,
		sink:     sink,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Start launches the background worker. It is a no-op if already running.
func (df *DepthFilter) Start() {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	df.cancelFunc = cancel
	df.running = true

	df.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		df.loop(ctx)
	}, df.activeBackgroundWorkers.Done)

	df.logger.Info("depthfilter: worker started")
}

// Stop halts the worker and blocks until it has exited. It is a no-op if
// not running. After Stop returns, the filter may be safely discarded or
// Start may be called again.
func (df *DepthFilter) Stop() {
	df.mu.Lock()
	if !df.running {
		df.mu.Unlock()
		return
	}
	df.running = false
	cancel := df.cancelFunc
	df.mu.Unlock()

	df.intake.Stop()
	cancel()
	df.activeBackgroundWorkers.Wait()

	// Reopen the intake so a later Start, or inline submission, works again.
	df.intake.mu.Lock()
	df.intake.closed = false
	df.intake.mu.Unlock()
	df.intake.preempt.Store(false)

	df.logger.Info("depthfilter: worker stopped")
}

// Running reports whether the background worker is active.
func (df *DepthFilter) Running() bool {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.running
}

// SubmitFrame adds a non-keyframe for seed updates. When a worker is
// running, the frame is enqueued (subject to FrameIntake's capacity-3
// eviction) and processed asynchronously; otherwise updateSeeds runs inline
// on the caller's goroutine. Keyframes go through SubmitKeyframe, which
// carries the depth prior that seed initialization needs.
func (df *DepthFilter) SubmitFrame(frame Frame) {
	if df.Running() {
		df.intake.SubmitFrame(frame)
		if df.metrics != nil {
			df.metrics.frameQueueDepth.Set(float64(df.intake.QueueLen()))
		}
		return
	}
	df.updateSeeds(frame, 0)
}

// SubmitKeyframe adds a keyframe for seed re-initialization. When a worker
// is running, this pre-empts any in-flight non-keyframe update and takes
// priority on the worker's next wake, and the worker later runs the
// history head-start pass as part of processKeyframe. Inline, the same
// steps the worker runs for a drained keyframe run on the caller's
// goroutine: updateSeeds against the keyframe, then processKeyframe,
// including the history head start.
func (df *DepthFilter) SubmitKeyframe(frame Frame, depthMean, depthMin float64, history ...Frame) {
	if df.Running() {
		df.intake.SubmitKeyframe(frame, depthMean, depthMin, history...)
		return
	}
	df.updateSeeds(frame, 0)
	if frame.IsKeyframe() {
		df.processKeyframe(frame, depthMean, depthMin, history)
	}
}

// RemoveByFrame erases every seed referencing frame. When a worker is
// running this acquires the store lock like any other mutation; otherwise
// it runs inline — both paths call the same method on the store.
func (df *DepthFilter) RemoveByFrame(frame Frame) int {
	removed := df.store.RemoveByFrame(frame)
	if df.metrics != nil {
		df.metrics.seedsErasedTotal.WithLabelValues("frame_removed").Add(float64(removed))
		df.metrics.seedsLive.Set(float64(df.store.Len()))
	}
	return removed
}

// Reset clears the seed store and the frame intake. It does not reset the
// batch/seed ID counters — see SPEC_FULL.md.
func (df *DepthFilter) Reset() {
	removed := df.store.Clear()
	df.intake.Reset()
	if df.metrics != nil {
		df.metrics.seedsErasedTotal.WithLabelValues("reset").Add(float64(removed))
		df.metrics.seedsLive.Set(0)
		df.metrics.frameQueueDepth.Set(0)
	}
	if df.opts.Verbose {
		df.logger.Info("depthfilter: reset")
	}
}

// Seeds returns a point-in-time snapshot of the live seed population.
func (df *DepthFilter) Seeds() []*Seed {
	return df.store.Snapshot()
}

func (df *DepthFilter) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, ok := df.intake.DrainNext()
		if !ok {
			return
		}
		if df.metrics != nil {
			df.metrics.frameQueueDepth.Set(float64(df.intake.QueueLen()))
		}

		df.updateSeeds(item.Frame, 0)
		if item.Frame.IsKeyframe() {
			df.processKeyframe(item.Frame, item.DepthMean, item.DepthMin, item.History)
		}
	}
}

// processKeyframe initializes seeds from the keyframe's freshly detected
// features, then — only if that grew the population — gives the new seeds
// a head start by updating them against each history frame.
func (df *DepthFilter) processKeyframe(frame Frame, depthMean, depthMin float64, history []Frame) {
	oldSize := df.store.Len()
	df.initializeSeeds(frame, depthMean, depthMin)
	newSize := df.store.Len()

	if newSize > oldSize {
		for _, hf := range history {
			df.updateSeeds(hf, oldSize)
		}
	}
}

// initializeSeeds marks every existing feature of frame as occupied in the
// detector's grid, runs detection on the remaining space, and appends one
// seed per detected point.
func (df *DepthFilter) initializeSeeds(frame Frame, depthMean, depthMin float64) {
	grid := df.detector.Grid()
	for _, f := range frame.Features() {
		grid.SetOccupied(f.Px.X, f.Px.Y)
	}

	points, err := df.detector.Detect(frame.Pyramid())
	if err != nil {
		df.logger.Warnw("depthfilter: feature detection failed", "error", err)
		return
	}

	created := df.store.InitializeBatch(frame, points, depthMean, depthMin)
	if df.opts.Verbose {
		df.logger.Debugw("depthfilter: initialized new seeds", "count", len(created))
	}
	if df.metrics != nil {
		df.metrics.seedsLive.Set(float64(df.store.Len()))
	}
}

// updateSeeds performs the per-frame update: for every live seed from
// startIndex onward, attempt an epipolar match against frame and fold the
// result into the seed's estimate.
func (df *DepthFilter) updateSeeds(frame Frame, startIndex int) {
	cam := frame.Camera()
	errorAngle := pxErrorAngle(cam.ErrorMultiplier2())
	currentBatch := df.store.BatchCounter()

	var matchFailures, matchSuccesses, erasedAge, erasedNaN, converged int

	df.store.UpdateRange(startIndex, func(seed *Seed) RangeAction {
		if df.intake.Halted() {
			return ActionHalt
		}

		if currentBatch-seed.BatchID > df.opts.MaxAgeKeyframes {
			erasedAge++
			return ActionErase
		}

		refPose := seed.Feature.RefFrame.Pose()
		curPose := frame.Pose()
		tRefCur := refPose.Compose(curPose.Inverse())

		refPoint := seed.Feature.F.Mul(1.0 / float64(seed.Mu))
		curPoint := tRefCur.Inverse().Apply(refPoint)
		if curPoint.Z < 0 {
			return ActionContinue // behind the camera
		}
		px, ok := frame.ProjectToPixel(curPoint)
		if !ok || !cam.IsInFrame(px) {
			return ActionContinue // does not project into the image
		}

		zInvMin := float64(seed.Mu) + math.Sqrt(float64(seed.Sigma2))
		zInvMax := math.Max(float64(seed.Mu)-math.Sqrt(float64(seed.Sigma2)), 1e-8)

		result, found := df.matcher.FindEpipolarMatchDirect(
			seed.Feature.RefFrame, frame, seed.Feature,
			1.0/float64(seed.Mu), 1.0/zInvMin, 1.0/zInvMax,
		)
		if !found {
			seed.B++
			matchFailures++
			return ActionContinue
		}
		matchSuccesses++

		meas := ComputeMeasurement(tRefCur, seed.Feature.F, result.Z, errorAngle)
		Update(seed, float32(meas.X), float32(meas.Tau2))

		if frame.IsKeyframe() {
			df.detector.Grid().SetOccupied(result.PxCur.X, result.PxCur.Y)
		}

		if math.Sqrt(float64(seed.Sigma2)) < float64(seed.ZRange)/df.opts.SeedConvergenceSigma2Thresh {
			worldPoint := seed.Feature.RefFrame.Pose().Inverse().Apply(
				seed.Feature.F.Mul(1.0 / float64(seed.Mu)))
			df.sink(worldPoint, seed.Feature, seed.Sigma2)
			converged++
			return ActionErase
		} else if math.IsNaN(zInvMin) {
			df.logger.Warnw("depthfilter: z_inv_min is NaN", "seedID", seed.ID)
			erasedNaN++
			return ActionErase
		}
		return ActionContinue
	})

	if df.metrics != nil {
		df.metrics.matchFailuresTotal.Add(float64(matchFailures))
		df.metrics.matchSuccessesTotal.Add(float64(matchSuccesses))
		df.metrics.seedsConvergedTotal.Add(float64(converged))
		df.metrics.seedsErasedTotal.WithLabelValues("age").Add(float64(erasedAge))
		df.metrics.seedsErasedTotal.WithLabelValues("nan").Add(float64(erasedNaN))
		df.metrics.seedsLive.Set(float64(df.store.Len()))
	}
}
