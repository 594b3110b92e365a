package depthfiltertest

import (
	"sync"

	"github.com/forsterlab/depthfilter/depthfilter"
)

// Grid is a minimal in-memory depthfilter.OccupancyGrid, safe for
// concurrent use since the worker mutates it and a test goroutine may
// inspect it.
type Grid struct {
	mu       sync.Mutex
	occupied map[[2]int]bool
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{occupied: make(map[[2]int]bool)}
}

// SetOccupied marks (x, y) as occupied.
func (g *Grid) SetOccupied(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.occupied[[2]int{x, y}] = true
}

// IsOccupied reports whether (x, y) has been marked occupied. Test-only
// accessor, not part of depthfilter.OccupancyGrid.
func (g *Grid) IsOccupied(x, y int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.occupied[[2]int{x, y}]
}

// FeatureDetector is a fake depthfilter.FeatureDetector.
type FeatureDetector struct {
	// DetectFunc overrides Detect. If nil, Detect returns no points.
	DetectFunc func(pyr depthfilter.Pyramid) ([]depthfilter.FeaturePoint, error)

	gridOnce sync.Once
	grid     *Grid
}

// Detect calls d.DetectFunc, or returns (nil, nil) if unset.
func (d *FeatureDetector) Detect(pyr depthfilter.Pyramid) ([]depthfilter.FeaturePoint, error) {
	if d.DetectFunc != nil {
		return d.DetectFunc(pyr)
	}
	return nil, nil
}

// Grid lazily constructs and returns this detector's occupancy grid.
func (d *FeatureDetector) Grid() depthfilter.OccupancyGrid {
	d.gridOnce.Do(func() { d.grid = NewGrid() })
	return d.grid
}
