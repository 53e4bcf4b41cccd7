package commands

import (
	"fmt"

	"github.com/Velaseriat/vp-link/internal/config"
	"github.com/Velaseriat/vp-link/internal/engine"
	"github.com/Velaseriat/vp-link/internal/overlay"
)

// The HUD widgets poll the session through a double pointer: the sink
// (and with it the HUD) must exist before the session does.

// NewHUDStatusWidget shows geometry, pacing and follow state.
func NewHUDStatusWidget(session **engine.Session, cfg *config.Config) overlay.Widget {
	return overlay.NewStatusWidget(func() string {
		s := *session
		if s == nil {
			return ""
		}
		snap := s.Snapshot()
		following := "off"
		if snap.Following {
			following = "on"
		}
		return fmt.Sprintf("%dx%d @%d fps | follow %s | cursor %s | frames %d",
			cfg.Capture.Width, cfg.Capture.Height, snap.OutputFPS,
			following, snap.CursorSource, snap.EmittedFrames)
	})
}

// NewHUDCursorWidget marks the tracked pointer in crop-local
// coordinates, hidden while it is outside the crop.
func NewHUDCursorWidget(session **engine.Session, cfg *config.Config) overlay.Widget {
	return overlay.NewCursorWidget(func() (float64, float64, bool) {
		s := *session
		if s == nil {
			return 0, 0, false
		}
		snap := s.Snapshot()
		if snap.CursorSource == "none" {
			return 0, 0, false
		}
		x := snap.CursorX - float64(snap.OriginX)
		y := snap.CursorY - float64(snap.OriginY)
		visible := x >= 0 && y >= 0 &&
			x < float64(cfg.Capture.Width) && y < float64(cfg.Capture.Height)
		return x, y, visible
	})
}
