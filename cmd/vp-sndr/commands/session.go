package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/capture"
	"github.com/Velaseriat/vp-link/internal/config"
	"github.com/Velaseriat/vp-link/internal/cursor"
	"github.com/Velaseriat/vp-link/internal/engine"
	"github.com/Velaseriat/vp-link/internal/follow"
	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
	"github.com/Velaseriat/vp-link/internal/output"
	"github.com/Velaseriat/vp-link/internal/overlay"
)

// addSessionFlags registers the capture/follow flags shared by send and
// record. Flag defaults come from the saved config at run time; only
// flags the user changed override it.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("x", 0, "initial crop origin X")
	cmd.Flags().Int("y", 0, "initial crop origin Y")
	cmd.Flags().Int("width", 0, "output width")
	cmd.Flags().Int("height", 0, "output height")
	cmd.Flags().Int("fps", 0, "source capture rate")
	cmd.Flags().Int("frame-skip", -1, "drop N frames after each kept one")
	cmd.Flags().Bool("follow-mouse", false, "keep the crop centered on the pointer")
	cmd.Flags().Float64("smoothing", 0, "follow smoothing rate (higher is snappier)")
	cmd.Flags().Float64("deadzone", -1, "deadzone as percent of crop size")
}

// applySessionFlags writes changed flag values into the manager's viper
// so the config layer stays the single source of effective settings.
func applySessionFlags(cmd *cobra.Command, mgr *config.Manager) {
	v := mgr.GetViper()
	set := func(flag, key string) {
		if cmd.Flags().Changed(flag) {
			switch flag {
			case "follow-mouse":
				val, _ := cmd.Flags().GetBool(flag)
				v.Set(key, val)
			case "smoothing", "deadzone":
				val, _ := cmd.Flags().GetFloat64(flag)
				v.Set(key, val)
			default:
				val, _ := cmd.Flags().GetInt(flag)
				v.Set(key, val)
			}
		}
	}
	set("x", "capture.x")
	set("y", "capture.y")
	set("width", "capture.width")
	set("height", "capture.height")
	set("fps", "capture.fps")
	set("frame-skip", "capture.frame_skip")
	set("follow-mouse", "follow.enabled")
	set("smoothing", "follow.smoothing")
	set("deadzone", "follow.deadzone_pct")
}

// buildAggregator wires the cursor sources in priority order: embedded
// frame metadata, then the pointer session, then relative input
// devices. Unavailable sources are skipped with a warning; following
// degrades rather than fails. Returns nil when following is off so no
// source workers start.
func buildAggregator(cfg *config.Config) *cursor.Aggregator {
	if !cfg.Follow.Enabled {
		return nil
	}
	log := logger.WithComponent("main")

	sources := []cursor.Source{cursor.MetaSource{}}

	if ps, err := cursor.NewPointerSession(0, 0); err != nil {
		log.Warn().Err(err).Msg("Pointer session unavailable")
	} else {
		sources = append(sources, ps)
	}

	if rd, err := cursor.NewRelativeDevices(); err != nil {
		log.Warn().Err(err).Msg("Relative input devices unavailable")
	} else {
		sources = append(sources, rd)
	}

	seedX := float64(cfg.Capture.X + cfg.Capture.Width/2)
	seedY := float64(cfg.Capture.Y + cfg.Capture.Height/2)
	return cursor.NewAggregator(seedX, seedY, sources...)
}

// engineConfig maps persisted settings onto a session config.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		OutWidth:      cfg.Capture.Width,
		OutHeight:     cfg.Capture.Height,
		InitialX:      cfg.Capture.X,
		InitialY:      cfg.Capture.Y,
		SourceFPS:     cfg.Capture.FPS,
		FrameSkip:     cfg.Capture.FrameSkip,
		FollowEnabled: cfg.Follow.Enabled,
		Smoothing:     cfg.Follow.Smoothing,
		DeadzonePct:   cfg.Follow.DeadzonePct,
		Policy:        follow.Policy(cfg.Follow.Policy),
		StateInterval: time.Duration(cfg.Follow.ResampleInterval * float64(time.Second)),
	}
}

// outputFPS is the emitted rate after decimation.
func outputFPS(cfg *config.Config) int {
	fps := cfg.Capture.FPS / (cfg.Capture.FrameSkip + 1)
	if fps < 1 {
		fps = 1
	}
	return fps
}

// sessionContext cancels on SIGINT/SIGTERM so sinks can flush.
func sessionContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// emitSink fans emitted frames out to the primary sink and the local
// side outputs (MJPEG preview, X window). The HUD draws on the preview
// copy only; the streamed pixels stay clean.
type emitSink struct {
	primary engine.Sink
	outputs []output.Output
	hud     *overlay.Manager
	width   int
	height  int
}

func (s *emitSink) Push(buf []byte, pts, duration time.Duration) error {
	if len(s.outputs) > 0 {
		img := output.BGRxToRGBA(buf, s.width, s.height, 0)
		if s.hud != nil {
			s.hud.Render(img)
		}
		for _, out := range s.outputs {
			// Side-output failures never stall the stream.
			if err := out.WriteFrame(img); err != nil {
				logger.WithComponent("main").Debug().
					Err(err).
					Str("output", out.Name()).
					Msg("Side output dropped a frame")
			}
		}
	}
	return s.primary.Push(buf, pts, duration)
}

// runSession drives the capture loop until ctx is done or a fatal
// frame-processing error aborts the session.
func runSession(ctx context.Context, backend capture.Capturer, session *engine.Session) error {
	err := backend.Run(ctx, func(f *frame.Sample) error {
		if _, herr := session.HandleFrame(f); herr != nil {
			return herr
		}
		return nil
	})
	if err != nil {
		return err
	}
	return session.Failed()
}
