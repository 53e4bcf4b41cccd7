package cursor

import (
	"testing"

	"github.com/Velaseriat/vp-link/internal/frame"
)

// stubSource reports a fixed position, or nothing at all.
type stubSource struct {
	name string
	x, y float64
	ok   bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Sample(_ *frame.Sample, _, _ float64) (float64, float64, bool) {
	return s.x, s.y, s.ok
}

// stubDelta mimics the relative-device source: it offsets whatever the
// aggregator last resolved.
type stubDelta struct {
	dx, dy float64
	ok     bool
}

func (s *stubDelta) Name() string { return "deltas" }

func (s *stubDelta) Sample(_ *frame.Sample, lastX, lastY float64) (float64, float64, bool) {
	return lastX + s.dx, lastY + s.dy, s.ok
}

func cursorMeta(x, y float64) frame.MetaStructure {
	return frame.MetaStructure{
		Name:   "cursor-position",
		Fields: map[string]interface{}{"x": x, "y": y},
	}
}

func TestPriorityOrder(t *testing.T) {
	session := &stubSource{name: "session", x: 111, y: 222, ok: true}
	deltas := &stubDelta{dx: 5, dy: 5, ok: true}
	agg := NewAggregator(0, 0, MetaSource{}, session, deltas)

	// All three report: frame metadata wins.
	withMeta := &frame.Sample{Width: 1920, Height: 1080, Meta: []frame.MetaStructure{cursorMeta(700, 800)}}
	got, ok := agg.Resolve(withMeta)
	if !ok || got.X != 700 || got.Y != 800 || got.Source != "frame-meta" {
		t.Fatalf("Resolve = %+v (ok=%v), want metadata sample (700, 800)", got, ok)
	}

	// Metadata absent: the session value beats the deltas.
	bare := &frame.Sample{Width: 1920, Height: 1080}
	got, ok = agg.Resolve(bare)
	if !ok || got.X != 111 || got.Y != 222 || got.Source != "session" {
		t.Fatalf("Resolve = %+v (ok=%v), want session sample (111, 222)", got, ok)
	}

	// Session silent too: deltas apply to the last resolved position.
	session.ok = false
	got, ok = agg.Resolve(bare)
	if !ok || got.X != 116 || got.Y != 227 || got.Source != "deltas" {
		t.Fatalf("Resolve = %+v (ok=%v), want delta sample (116, 227)", got, ok)
	}
}

func TestAllSourcesSilentFreezesPosition(t *testing.T) {
	session := &stubSource{name: "session", x: 400, y: 300, ok: true}
	agg := NewAggregator(0, 0, session)
	bare := &frame.Sample{Width: 1920, Height: 1080}

	if _, ok := agg.Resolve(bare); !ok {
		t.Fatal("session sample not resolved")
	}
	session.ok = false
	got, ok := agg.Resolve(bare)
	if ok {
		t.Error("silent frame reported ok")
	}
	if got.X != 400 || got.Y != 300 {
		t.Errorf("frozen position = (%v, %v), want the last resolved (400, 300)", got.X, got.Y)
	}
}

func TestDeltasAccumulateFromSeed(t *testing.T) {
	deltas := &stubDelta{dx: 10, dy: -4, ok: true}
	agg := NewAggregator(960, 540, deltas)
	bare := &frame.Sample{Width: 1920, Height: 1080}

	got, ok := agg.Resolve(bare)
	if !ok || got.X != 970 || got.Y != 536 {
		t.Fatalf("first delta resolve = %+v, want seed+delta (970, 536)", got)
	}
	got, _ = agg.Resolve(bare)
	if got.X != 980 || got.Y != 532 {
		t.Errorf("second delta resolve = %+v, want (980, 532)", got)
	}
}

func TestNoSources(t *testing.T) {
	agg := NewAggregator(10, 20)
	got, ok := agg.Resolve(&frame.Sample{Width: 100, Height: 100})
	if ok {
		t.Error("aggregator without sources reported a sample")
	}
	if got.X != 10 || got.Y != 20 {
		t.Errorf("position = (%v, %v), want the seed (10, 20)", got.X, got.Y)
	}
}
