package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/capture"
	"github.com/Velaseriat/vp-link/internal/engine"
	"github.com/Velaseriat/vp-link/internal/logger"
	"github.com/Velaseriat/vp-link/internal/stream"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the crop to a WebM file",
	Long: `Capture the display for a fixed duration and write the cropped
stream to a WebM file encoded as VP8.`,
	Example: `  # Five seconds at the default 10 fps
  vp-sndr record --output clip.webm

  # Thirty seconds, pointer-following, 30 fps
  vp-sndr record --output clip.webm --duration 30s --fps 30 --follow-mouse`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addSessionFlags(recordCmd)
	recordCmd.Flags().String("output", "", "output file path (required)")
	recordCmd.Flags().Duration("duration", 5*time.Second, "recording length")
	recordCmd.Flags().Int("bitrate-kbps", 0, "encoder bitrate in kbit/s")
	recordCmd.MarkFlagRequired("output")
}

func runRecord(cmd *cobra.Command, args []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}

	applySessionFlags(cmd, mgr)
	v := mgr.GetViper()
	// Recording favors small files over smoothness.
	if !cmd.Flags().Changed("fps") {
		v.Set("capture.fps", 10)
	}
	if cmd.Flags().Changed("bitrate-kbps") {
		val, _ := cmd.Flags().GetInt("bitrate-kbps")
		v.Set("encode.bitrate_kbps", val)
	}

	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, true)

	path, _ := cmd.Flags().GetString("output")
	duration, _ := cmd.Flags().GetDuration("duration")
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", duration)
	}

	ctx, cancel := sessionContext()
	defer cancel()
	ctx, timeout := context.WithTimeout(ctx, duration)
	defer timeout()

	recorder, err := stream.NewRecorder(stream.RecorderConfig{
		Path:        path,
		Width:       cfg.Capture.Width,
		Height:      cfg.Capture.Height,
		FPS:         outputFPS(cfg),
		BitrateKbps: cfg.Encode.BitrateKbps,
	})
	if err != nil {
		return err
	}
	if err := recorder.Start(); err != nil {
		return err
	}

	session := engine.NewSession(engineConfig(cfg), buildAggregator(cfg), recorder)

	backend, err := capture.SelectBackend(capture.Region{}, cfg.Capture.FPS, mgr.GetConfigDir())
	if err != nil {
		recorder.Stop()
		return err
	}

	logger.WithComponent("main").Info().
		Str("output", path).
		Dur("duration", duration).
		Str("backend", backend.Name()).
		Msg("Recording")

	runErr := runSession(ctx, backend, session)

	// Stop flushes the EOS so the muxer finalizes the file.
	if err := recorder.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	snap := session.Snapshot()
	fmt.Printf("Wrote %s (%d frames)\n", path, snap.EmittedFrames)
	return nil
}
