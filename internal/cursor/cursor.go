// Package cursor resolves one pointer position per frame from several
// unreliable signal sources with priority fallback.
package cursor

import (
	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
)

// Sample is one resolved pointer position in source-frame pixel space.
type Sample struct {
	X, Y   float64
	Source string
}

// Source yields pointer samples from one signal origin. Sample receives
// the frame being processed plus the last position the aggregator
// resolved, so relative sources can apply their deltas to it. ok=false
// means the source has nothing to report for this frame.
type Source interface {
	Sample(f *frame.Sample, lastX, lastY float64) (x, y float64, ok bool)
	Name() string
}

// Aggregator tries its sources in fixed priority order each frame and
// keeps the last resolved position so a silent frame freezes rather
// than jumps. Resolve is driven from the single frame-processing
// goroutine.
type Aggregator struct {
	sources []Source
	lastX   float64
	lastY   float64
}

// NewAggregator builds an aggregator seeded at (seedX, seedY), usually
// the initial crop center. Sources are tried in the order given.
func NewAggregator(seedX, seedY float64, sources ...Source) *Aggregator {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	logger.WithComponent("cursor").Info().
		Strs("sources", names).
		Msg("Cursor aggregator ready")
	return &Aggregator{sources: sources, lastX: seedX, lastY: seedY}
}

// Resolve returns the highest-priority sample available for this frame.
// When every source is silent it returns the previous position with
// ok=false; the caller decides whether that still counts as input.
func (a *Aggregator) Resolve(f *frame.Sample) (Sample, bool) {
	for _, s := range a.sources {
		if x, y, ok := s.Sample(f, a.lastX, a.lastY); ok {
			a.lastX, a.lastY = x, y
			return Sample{X: x, Y: y, Source: s.Name()}, true
		}
	}
	return Sample{X: a.lastX, Y: a.lastY}, false
}
