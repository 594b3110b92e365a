package depthfilter

import (
	"sync"
	"sync/atomic"
)

// nonKeyframeQueueCapacity bounds the non-keyframe FIFO. In real-time
// operation only the freshest frames are useful, so the queue drops the
// oldest entry rather than blocking the producer.
const nonKeyframeQueueCapacity = 3

// WorkItem is a unit of work drained from a FrameIntake: either a plain
// frame to update seeds against, or a keyframe (Frame.IsKeyframe() is true)
// carrying the depth prior and optional history frames used to give newly
// initialized seeds a head start against past frames.
type WorkItem struct {
	Frame               Frame
	DepthMean, DepthMin float64
	History             []Frame
}

type pendingKeyframe struct {
	frame               Frame
	depthMean, depthMin float64
	history             []Frame
}

// FrameIntake is a bounded queue of non-keyframes plus a single-slot
// pending keyframe with pre-emption semantics: a keyframe submission always
// takes priority on the worker's next wake, and discards any queued
// non-keyframes as stale.
type FrameIntake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Frame
	pending *pendingKeyframe
	closed  bool

	// preempt is read from inside the per-seed update loop without lock
	// acquisition, so writes must be visible without one.
	preempt atomic.Bool
}

// NewFrameIntake returns an empty intake.
func NewFrameIntake() *FrameIntake {
	fi := &FrameIntake{}
	fi.cond = sync.NewCond(&fi.mu)
	return fi
}

// SubmitFrame enqueues a non-keyframe, evicting the oldest queued frame
// first if the queue is already at capacity, and clears the pre-empt flag
// so an update already in flight is allowed to continue.
func (fi *FrameIntake) SubmitFrame(frame Frame) {
	fi.mu.Lock()
	if len(fi.queue) > nonKeyframeQueueCapacity-1 {
		fi.queue = fi.queue[1:]
	}
	fi.queue = append(fi.queue, frame)
	fi.mu.Unlock()

	fi.preempt.Store(false)
	fi.cond.Signal()
}

// SubmitKeyframe sets the pending-keyframe slot, overwriting any keyframe
// that was submitted but not yet drained, and sets the pre-empt flag so an
// in-progress non-keyframe update bails out promptly. history, if given, is
// used to give newly-initialized seeds a head start against past frames.
func (fi *FrameIntake) SubmitKeyframe(frame Frame, depthMean, depthMin float64, history ...Frame) {
	fi.mu.Lock()
	fi.pending = &pendingKeyframe{frame: frame, depthMean: depthMean, depthMin: depthMin, history: history}
	fi.mu.Unlock()

	fi.preempt.Store(true)
	fi.cond.Signal()
}

// Halted reports whether the pre-empt flag is currently set. Called from
// the per-seed update loop on every iteration.
func (fi *FrameIntake) Halted() bool {
	return fi.preempt.Load()
}

// DrainNext blocks until a frame or pending keyframe is available, or the
// intake is stopped. A pending keyframe always takes priority over queued
// non-keyframes, and discards them as stale. ok is false only when the
// intake has been stopped and nothing remains to drain.
func (fi *FrameIntake) DrainNext() (WorkItem, bool) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	for len(fi.queue) == 0 && fi.pending == nil && !fi.closed {
		fi.cond.Wait()
	}

	if fi.pending != nil {
		pk := fi.pending
		fi.pending = nil
		fi.queue = nil
		fi.preempt.Store(false)
		return WorkItem{Frame: pk.frame, DepthMean: pk.depthMean, DepthMin: pk.depthMin, History: pk.history}, true
	}

	if len(fi.queue) > 0 {
		frame := fi.queue[0]
		fi.queue = fi.queue[1:]
		return WorkItem{Frame: frame}, true
	}

	return WorkItem{}, false
}

// Reset empties the queue and the pending-keyframe slot and clears the
// pre-empt flag.
func (fi *FrameIntake) Reset() {
	fi.mu.Lock()
	fi.queue = nil
	fi.pending = nil
	fi.mu.Unlock()
	fi.preempt.Store(false)
}

// QueueLen reports the current non-keyframe queue depth, for metrics.
func (fi *FrameIntake) QueueLen() int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return len(fi.queue)
}

// Stop sets the pre-empt flag (so an in-progress update returns promptly)
// and the terminate condition, then wakes the worker. After Stop, DrainNext
// returns ok=false once the intake has been drained of pending work.
func (fi *FrameIntake) Stop() {
	fi.preempt.Store(true)

	fi.mu.Lock()
	fi.closed = true
	fi.mu.Unlock()

	fi.cond.Broadcast()
}
