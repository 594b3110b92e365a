package depthfilter

import (
	"image"
	"sync"
)

// RangeAction is returned by the callback passed to SeedStore.UpdateRange
// to tell the store what to do with the seed it was just given.
type RangeAction int

const (
	// ActionContinue leaves the seed in place and advances to the next
	// one.
	ActionContinue RangeAction = iota
	// ActionErase removes the current seed from the store and advances.
	ActionErase
	// ActionHalt stops iteration immediately, leaving the remaining seeds
	// (including the current one) unmodified.
	ActionHalt
)

// SeedStore is an ordered collection of live seeds. Insertion order is
// preserved and iteration order is deterministic. All mutation happens
// under a single lock, held for the duration of the whole operation —
// including, for UpdateRange, the entire iteration — not per seed.
type SeedStore struct {
	mu           sync.Mutex
	seeds        []*Seed
	batchCounter uint64
	seedCounter  uint64
}

// NewSeedStore returns an empty store with counters starting at zero.
func NewSeedStore() *SeedStore {
	return &SeedStore{}
}

// InitializeBatch bumps the batch counter exactly once, then appends one
// seed per feature point, returning the newly created seeds in order.
func (s *SeedStore) InitializeBatch(frame Frame, points []FeaturePoint, depthMean, depthMin float64) []*Seed {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchCounter++
	batchID := s.batchCounter

	cam := frame.Camera()
	created := make([]*Seed, 0, len(points))
	for _, p := range points {
		s.seedCounter++
		px := image.Point{X: int(p.X), Y: int(p.Y)}
		feature := &Feature{
			Px:       px,
			F:        cam.Unproject(px),
			Level:    p.Level,
			RefFrame: frame,
		}
		seed := newSeed(s.seedCounter, batchID, feature, depthMean, depthMin)
		s.seeds = append(s.seeds, seed)
		created = append(created, seed)
	}
	return created
}

// UpdateRange iterates seeds [start, end) under the store lock, applying fn
// to each. Erased seeds are removed in place; ActionHalt stops iteration
// early without visiting the remainder. Returns the number of seeds visited
// and the number erased.
func (s *SeedStore) UpdateRange(start int, fn func(*Seed) RangeAction) (visited, erased int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := start
	for i < len(s.seeds) {
		switch fn(s.seeds[i]) {
		case ActionHalt:
			return visited, erased
		case ActionErase:
			s.seeds = append(s.seeds[:i], s.seeds[i+1:]...)
			erased++
			visited++
		default:
			visited++
			i++
		}
	}
	return visited, erased
}

// RemoveByFrame erases every seed whose reference frame equals frame,
// reporting the count removed.
func (s *SeedStore) RemoveByFrame(frame Frame) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.seeds[:0]
	for _, seed := range s.seeds {
		if seed.Feature.RefFrame == frame {
			removed++
			continue
		}
		kept = append(kept, seed)
	}
	s.seeds = kept
	return removed
}

// Clear removes every seed, reporting the count removed. Counters are left
// untouched — a seed's batch/ID history is part of the filter's age
// bookkeeping, not the seed population itself (see SPEC_FULL.md on reset
// semantics).
func (s *SeedStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.seeds)
	s.seeds = nil
	return removed
}

// Len returns the current number of live seeds.
func (s *SeedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seeds)
}

// BatchCounter returns the current batch counter (the "current_batch" used
// for age comparisons).
func (s *SeedStore) BatchCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchCounter
}

// Snapshot returns a copy of the live seed slice, in insertion order, for
// inspection by tests and callers that need a point-in-time view.
func (s *SeedStore) Snapshot() []*Seed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Seed, len(s.seeds))
	copy(out, s.seeds)
	return out
}
