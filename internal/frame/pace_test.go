package frame

import (
	"testing"
	"time"
)

func TestDecimationKeepsEveryNth(t *testing.T) {
	cases := []struct {
		name      string
		sourceFPS int
		frameSkip int
		inputs    int
		want      int
	}{
		{"no skip keeps all", 30, 0, 30, 30},
		{"skip 2 keeps a third", 30, 2, 30, 10},
		{"skip 1 keeps half", 60, 1, 120, 60},
		{"skip 4 keeps a fifth", 50, 4, 100, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPacer(tc.sourceFPS, tc.frameSkip)
			emitted := 0
			for i := 0; i < tc.inputs; i++ {
				if _, _, ok := p.Admit(); ok {
					emitted++
				}
			}
			if emitted != tc.want {
				t.Errorf("emitted %d of %d frames, want %d", emitted, tc.inputs, tc.want)
			}
			ins, outs := p.Counts()
			if ins != uint64(tc.inputs) || outs != uint64(tc.want) {
				t.Errorf("Counts() = (%d, %d), want (%d, %d)", ins, outs, tc.inputs, tc.want)
			}
		})
	}
}

func TestFirstFrameAlwaysEmitted(t *testing.T) {
	p := NewPacer(60, 9)
	pts, dur, ok := p.Admit()
	if !ok {
		t.Fatal("first input frame was decimated")
	}
	if pts != 0 {
		t.Errorf("first pts = %v, want 0", pts)
	}
	if dur != p.Period() {
		t.Errorf("duration = %v, want %v", dur, p.Period())
	}
}

func TestTimestampsAreGapFree(t *testing.T) {
	// 30 fps source, skip 2 => 10 fps output, 100ms period.
	p := NewPacer(30, 2)
	if p.OutputFPS() != 10 {
		t.Fatalf("OutputFPS = %d, want 10", p.OutputFPS())
	}
	var ptss []time.Duration
	for i := 0; i < 30; i++ {
		if pts, dur, ok := p.Admit(); ok {
			if dur != 100*time.Millisecond {
				t.Errorf("duration = %v, want 100ms", dur)
			}
			ptss = append(ptss, pts)
		}
	}
	if len(ptss) != 10 {
		t.Fatalf("emitted %d frames, want 10", len(ptss))
	}
	for i, pts := range ptss {
		want := time.Duration(i) * 100 * time.Millisecond
		if pts != want {
			t.Errorf("emission %d: pts = %v, want exactly %v", i, pts, want)
		}
	}
}

func TestOutputRateDerivation(t *testing.T) {
	cases := []struct {
		name       string
		sourceFPS  int
		frameSkip  int
		wantFPS    int
		wantPeriod time.Duration
	}{
		{"exact division", 60, 1, 30, time.Second / 30},
		{"inexact division floors", 25, 2, 8, 125 * time.Millisecond},
		{"floors to minimum of one", 5, 9, 1, time.Second},
		{"nonsense skip treated as none", 10, -3, 10, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPacer(tc.sourceFPS, tc.frameSkip)
			if p.OutputFPS() != tc.wantFPS {
				t.Errorf("OutputFPS = %d, want %d", p.OutputFPS(), tc.wantFPS)
			}
			if p.Period() != tc.wantPeriod {
				t.Errorf("Period = %v, want %v", p.Period(), tc.wantPeriod)
			}
		})
	}
}
