package commands

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/capture"
	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
	"github.com/Velaseriat/vp-link/internal/output"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Capture one cropped frame as PNG",
	Long: `Capture a single frame, crop it at the configured region and write
it as PNG. Useful for checking the crop geometry before streaming.`,
	Example: `  vp-sndr frame --output crop.png
  vp-sndr frame --x 640 --y 360 --width 1280 --height 720 --output crop.png`,
	RunE: runFrame,
}

func init() {
	rootCmd.AddCommand(frameCmd)
	addSessionFlags(frameCmd)
	frameCmd.Flags().String("output", "frame.png", "output file path")
}

func runFrame(cmd *cobra.Command, args []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	applySessionFlags(cmd, mgr)

	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, true)

	ctx, cancel := sessionContext()
	defer cancel()

	backend, err := capture.SelectBackend(capture.Region{}, cfg.Capture.FPS, mgr.GetConfigDir())
	if err != nil {
		return err
	}

	sample, err := capture.Once(ctx, backend)
	if err != nil {
		return fmt.Errorf("failed to capture frame: %w", err)
	}

	cropper := frame.NewCropper(cfg.Capture.Width, cfg.Capture.Height)
	buf, err := cropper.Crop(sample, cfg.Capture.X, cfg.Capture.Y)
	if err != nil {
		return fmt.Errorf("failed to crop frame: %w", err)
	}

	img := output.BGRxToRGBA(buf, cfg.Capture.Width, cfg.Capture.Height, 0)

	path, _ := cmd.Flags().GetString("output")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	fmt.Printf("Wrote %s (%dx%d crop of %dx%d source)\n",
		path, cfg.Capture.Width, cfg.Capture.Height, sample.Width, sample.Height)
	return nil
}
