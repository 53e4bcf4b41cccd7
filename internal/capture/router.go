package capture

import (
	"context"
	"fmt"
	"os"

	"github.com/Velaseriat/vp-link/internal/capture/pipewire"
	"github.com/Velaseriat/vp-link/internal/logger"
)

// pipewireBackend adapts the portal capturer to the Capturer interface.
// The pipewire package takes a plain func so it does not depend on this
// package.
type pipewireBackend struct {
	c *pipewire.Capturer
}

func (b *pipewireBackend) Run(ctx context.Context, handler FrameHandler) error {
	return b.c.Run(ctx, handler)
}

func (b *pipewireBackend) Name() string      { return b.c.Name() }
func (b *pipewireBackend) IsAvailable() bool { return b.c.IsAvailable() }

// SelectBackend picks the capture backend for this session: the portal
// on Wayland when it answers, X11 otherwise. The choice is made once at
// startup; there is no mid-session failover.
func SelectBackend(region Region, fps int, tokenDir string) (Capturer, error) {
	log := logger.WithComponent("capture")

	wayland := os.Getenv("XDG_SESSION_TYPE") == "wayland" ||
		os.Getenv("WAYLAND_DISPLAY") != ""

	if wayland && pipewire.Available() {
		log.Info().Msg("Using PipeWire portal capture")
		return &pipewireBackend{c: pipewire.NewCapturer(tokenDir, fps)}, nil
	}

	if os.Getenv("DISPLAY") != "" {
		x11, err := NewX11Capturer(region, fps)
		if err == nil {
			log.Info().Msg("Using X11 capture")
			return x11, nil
		}
		log.Warn().Err(err).Msg("X11 capture unavailable")
	}

	// A Wayland session without the portal still cannot use X11's
	// GetImage on the real screen, so there is nothing left to try.
	if pipewire.Available() {
		log.Info().Msg("Using PipeWire portal capture")
		return &pipewireBackend{c: pipewire.NewCapturer(tokenDir, fps)}, nil
	}

	return nil, fmt.Errorf("no capture backend available (need an X display or the screen-cast portal)")
}
