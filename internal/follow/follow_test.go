package follow

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// controller covering a 1920x1080 source with a 1280x720 window whose
// initial center sits at (960, 540).
func newTestController(deadzonePct float64, policy Policy) *Controller {
	return New(Config{
		OutWidth:    1280,
		OutHeight:   720,
		Smoothing:   8.0,
		DeadzonePct: deadzonePct,
		Policy:      policy,
	}, 320, 180, t0)
}

func TestCursorInsideDeadzoneHoldsCenter(t *testing.T) {
	// 20% of 1280x720 gives half-extents 128x72.
	cases := []struct {
		name string
		x, y float64
	}{
		{"right of center", 1080, 540},
		{"above center", 960, 470},
		{"near corner", 1087, 611},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(20, PolicyDeadzone)
			c.Update(Input{
				Now: t0.Add(100 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
				CursorX: tc.x, CursorY: tc.y, HaveCursor: true,
			})
			st := c.Snapshot()
			if st.CenterX != 960 || st.CenterY != 540 {
				t.Errorf("center moved to (%v, %v), want (960, 540)", st.CenterX, st.CenterY)
			}
			if st.Following {
				t.Error("controller started following inside the deadzone")
			}
		})
	}
}

func TestSmoothingStep(t *testing.T) {
	// smoothing=8, dt=0.1 => alpha = 1-e^-0.8 ~= 0.550671.
	c := newTestController(0, PolicyDeadzone)
	c.Update(Input{
		Now: t0.Add(100 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: 1000, CursorY: 540, HaveCursor: true,
	})
	alpha := 1 - math.Exp(-0.8)
	want := 960 + (1000-960)*alpha
	st := c.Snapshot()
	if math.Abs(st.CenterX-want) > 1e-6 {
		t.Errorf("CenterX = %v, want %v", st.CenterX, want)
	}
	if st.CenterY != 540 {
		t.Errorf("CenterY = %v, want 540", st.CenterY)
	}
	if !st.Following {
		t.Error("controller should still be converging")
	}
}

func TestSmoothingLimits(t *testing.T) {
	t.Run("zero interval moves nothing measurable", func(t *testing.T) {
		c := newTestController(0, PolicyDeadzone)
		// Same timestamp as construction; the step is floored, not zero.
		c.Update(Input{
			Now: t0, SrcWidth: 1920, SrcHeight: 1080,
			CursorX: 1500, CursorY: 540, HaveCursor: true,
		})
		st := c.Snapshot()
		if math.Abs(st.CenterX-960) > 0.01 {
			t.Errorf("CenterX = %v, want ~960 for a floored step", st.CenterX)
		}
	})
	t.Run("large interval converges exactly", func(t *testing.T) {
		c := newTestController(0, PolicyDeadzone)
		c.Update(Input{
			Now: t0.Add(time.Hour), SrcWidth: 1920, SrcHeight: 1080,
			CursorX: 1500, CursorY: 700, HaveCursor: true,
		})
		st := c.Snapshot()
		if st.CenterX != 1500 || st.CenterY != 700 {
			t.Errorf("center = (%v, %v), want exact (1500, 700)", st.CenterX, st.CenterY)
		}
		if st.Following {
			t.Error("controller should have settled")
		}
	})
}

func TestOriginAlwaysInRange(t *testing.T) {
	cursors := []struct{ x, y float64 }{
		{-5000, -5000},
		{0, 0},
		{1919, 1079},
		{1e9, 1e9},
		{-1, 1080},
	}
	c := newTestController(0, PolicyDeadzone)
	now := t0
	for _, cur := range cursors {
		now = now.Add(10 * time.Second)
		ox, oy := c.Update(Input{
			Now: now, SrcWidth: 1920, SrcHeight: 1080,
			CursorX: cur.x, CursorY: cur.y, HaveCursor: true,
		})
		if ox < 0 || ox > 640 || oy < 0 || oy > 360 {
			t.Errorf("cursor (%v, %v): origin (%d, %d) outside [0,640]x[0,360]", cur.x, cur.y, ox, oy)
		}
	}
}

func TestDeadzoneEdgePullAndClampedConvergence(t *testing.T) {
	// Cursor (1850, 100) against half-extents 128x72: target is the
	// cursor pulled back per axis to (1722, 172). Fully converged,
	// origin_x = clamp(1722-640, 0, 640) = 640.
	c := newTestController(20, PolicyDeadzone)
	ox, oy := c.Update(Input{
		Now: t0.Add(time.Hour), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: 1850, CursorY: 100, HaveCursor: true,
	})
	st := c.Snapshot()
	if st.TargetX != 1722 || st.TargetY != 172 {
		t.Errorf("target = (%v, %v), want (1722, 172)", st.TargetX, st.TargetY)
	}
	if ox != 640 {
		t.Errorf("originX = %d, want 640 (right-clamped)", ox)
	}
	if oy != 0 {
		t.Errorf("originY = %d, want 0 (clamp of 172-360)", oy)
	}
}

func TestCursorReturningInsideDeadzoneStopsChase(t *testing.T) {
	// A far cursor starts a chase; before the center arrives, the cursor
	// moves back to within the deadzone of where the center currently
	// is. The stale far target must be dropped so the crop does not keep
	// gliding away from the pointer.
	c := newTestController(20, PolicyDeadzone)
	c.Update(Input{
		Now: t0.Add(100 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: 1850, CursorY: 540, HaveCursor: true,
	})
	mid := c.Snapshot()
	if !mid.Following || mid.TargetX != 1722 {
		t.Fatalf("after the jump: following=%v target=%v, want following toward 1722", mid.Following, mid.TargetX)
	}

	// half-extent is 128, so a cursor within 128 of the current center
	// counts as back inside.
	c.Update(Input{
		Now: t0.Add(200 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: mid.CenterX - 100, CursorY: 540, HaveCursor: true,
	})
	st := c.Snapshot()
	if st.TargetX != mid.CenterX {
		t.Errorf("TargetX = %v, want retargeted onto the center %v", st.TargetX, mid.CenterX)
	}
	if st.CenterX != mid.CenterX {
		t.Errorf("CenterX = %v, kept moving toward the stale target (was %v)", st.CenterX, mid.CenterX)
	}
	if st.Following {
		t.Error("controller should have settled where the chase stopped")
	}
}

func TestZeroDeadzoneTargetsCursorDirectly(t *testing.T) {
	c := newTestController(0, PolicyDeadzone)
	c.Update(Input{
		Now: t0.Add(10 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: 1234.5, CursorY: 678.9, HaveCursor: true,
	})
	st := c.Snapshot()
	if st.TargetX != 1234.5 || st.TargetY != 678.9 {
		t.Errorf("target = (%v, %v), want the raw cursor", st.TargetX, st.TargetY)
	}
}

func TestCursorClampedToSource(t *testing.T) {
	c := newTestController(0, PolicyDeadzone)
	c.Update(Input{
		Now: t0.Add(10 * time.Millisecond), SrcWidth: 1920, SrcHeight: 1080,
		CursorX: 5000, CursorY: -40, HaveCursor: true,
	})
	st := c.Snapshot()
	if st.CursorX != 1919 || st.CursorY != 0 {
		t.Errorf("cursor = (%v, %v), want clamped (1919, 0)", st.CursorX, st.CursorY)
	}
}

func TestMissingCursorFreezesCenter(t *testing.T) {
	c := newTestController(0, PolicyDeadzone)
	for i := 1; i <= 5; i++ {
		c.Update(Input{
			Now: t0.Add(time.Duration(i) * time.Second), SrcWidth: 1920, SrcHeight: 1080,
		})
	}
	st := c.Snapshot()
	if st.CenterX != 960 || st.CenterY != 540 {
		t.Errorf("center drifted to (%v, %v) without cursor input", st.CenterX, st.CenterY)
	}
}

func TestBoundaryPolicy(t *testing.T) {
	t.Run("inside crop rect stays put", func(t *testing.T) {
		c := newTestController(0, PolicyBoundary)
		// Crop rect is [320,1600)x[180,900); (1599, 899) is still inside.
		c.Update(Input{
			Now: t0.Add(time.Second), SrcWidth: 1920, SrcHeight: 1080,
			CursorX: 1599, CursorY: 899, HaveCursor: true,
		})
		st := c.Snapshot()
		if st.Following {
			t.Error("boundary policy activated inside the crop rectangle")
		}
		if st.CenterX != 960 || st.CenterY != 540 {
			t.Errorf("center moved to (%v, %v)", st.CenterX, st.CenterY)
		}
	})
	t.Run("outside crop rect chases the cursor", func(t *testing.T) {
		c := newTestController(0, PolicyBoundary)
		c.Update(Input{
			Now: t0.Add(time.Hour), SrcWidth: 1920, SrcHeight: 1080,
			CursorX: 1700, CursorY: 540, HaveCursor: true,
		})
		st := c.Snapshot()
		if st.CenterX != 1700 || st.CenterY != 540 {
			t.Errorf("center = (%v, %v), want converged (1700, 540)", st.CenterX, st.CenterY)
		}
		if st.Following {
			t.Error("controller should have settled on the cursor")
		}
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newTestController(0, PolicyDeadzone)
	st := c.Snapshot()
	st.CenterX = -1
	if got := c.Snapshot().CenterX; got != 960 {
		t.Errorf("snapshot mutation leaked into controller: CenterX = %v", got)
	}
}
