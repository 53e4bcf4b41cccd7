package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/api"
	"github.com/Velaseriat/vp-link/internal/capture"
	"github.com/Velaseriat/vp-link/internal/engine"
	"github.com/Velaseriat/vp-link/internal/logger"
	"github.com/Velaseriat/vp-link/internal/output"
	"github.com/Velaseriat/vp-link/internal/overlay"
	"github.com/Velaseriat/vp-link/internal/stream"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Stream the crop to a receiver as RTP over UDP",
	Long: `Capture the display, crop it around the pointer and stream the
crop to a receiver as RTP. The receiver plays it with any
RTP-capable pipeline or player.`,
	Example: `  # Stream 1280x720 around the pointer to 192.168.1.20
  vp-sndr send --receiver-ip 192.168.1.20 --follow-mouse

  # Lower bandwidth: keep every third frame
  vp-sndr send --receiver-ip 192.168.1.20 --frame-skip 2 --bitrate-kbps 4000

  # With the local preview and control API on :8089
  vp-sndr send --receiver-ip 192.168.1.20 --follow-mouse --api-port 8089 --hud`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addSessionFlags(sendCmd)
	sendCmd.Flags().String("receiver-ip", "", "receiver host or IP (required unless saved)")
	sendCmd.Flags().Int("port", 0, "receiver RTP port")
	sendCmd.Flags().String("encoder", "", "video encoder element")
	sendCmd.Flags().Int("bitrate-kbps", 0, "encoder bitrate in kbit/s")
	sendCmd.Flags().Int("api-port", 0, "serve the control API and preview on this port (0 disables)")
	sendCmd.Flags().Bool("hud", false, "draw the status line and cursor marker onto the local preview")
	sendCmd.Flags().Bool("window", false, "also show the crop in a local X window")
	sendCmd.Flags().Bool("save", false, "persist the effective settings to the config file")
}

func runSend(cmd *cobra.Command, args []string) error {
	mgr, err := loadConfig()
	if err != nil {
		return err
	}

	applySessionFlags(cmd, mgr)
	v := mgr.GetViper()
	if cmd.Flags().Changed("receiver-ip") {
		val, _ := cmd.Flags().GetString("receiver-ip")
		v.Set("receiver_ip", val)
	}
	if cmd.Flags().Changed("port") {
		val, _ := cmd.Flags().GetInt("port")
		v.Set("port", val)
	}
	if cmd.Flags().Changed("encoder") {
		val, _ := cmd.Flags().GetString("encoder")
		v.Set("encode.encoder", val)
	}
	if cmd.Flags().Changed("bitrate-kbps") {
		val, _ := cmd.Flags().GetInt("bitrate-kbps")
		v.Set("encode.bitrate_kbps", val)
	}
	if cmd.Flags().Changed("api-port") {
		val, _ := cmd.Flags().GetInt("api-port")
		v.Set("api_port", val)
	}

	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ReceiverIP == "" {
		return fmt.Errorf("receiver IP is required (--receiver-ip or config)")
	}
	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := mgr.Save(); err != nil {
			return err
		}
	}
	logger.Init(cfg.LogLevel, true)

	ctx, cancel := sessionContext()
	defer cancel()

	sender, err := stream.NewSender(stream.SenderConfig{
		Host:        cfg.ReceiverIP,
		Port:        cfg.Port,
		Width:       cfg.Capture.Width,
		Height:      cfg.Capture.Height,
		FPS:         outputFPS(cfg),
		Encoder:     cfg.Encode.Encoder,
		BitrateKbps: cfg.Encode.BitrateKbps,
	})
	if err != nil {
		return err
	}
	if err := sender.Start(); err != nil {
		return err
	}
	defer sender.Stop()

	outCfg := output.Config{
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
		FPS:    outputFPS(cfg),
	}
	var outputs []output.Output

	var preview *output.MJPEGOutput
	if cfg.APIPort > 0 {
		preview = output.NewMJPEGOutput(outCfg)
		if err := preview.Start(); err != nil {
			return err
		}
		defer preview.Stop()
		outputs = append(outputs, preview)
	}

	if showWindow, _ := cmd.Flags().GetBool("window"); showWindow {
		window, err := output.NewXWindowOutput(outCfg)
		if err != nil {
			return err
		}
		if err := window.Start(); err != nil {
			return err
		}
		defer window.Stop()
		outputs = append(outputs, window)
	}

	// The HUD widgets read the session through a closure because the
	// session needs the sink first.
	var session *engine.Session
	var hud *overlay.Manager
	if showHUD, _ := cmd.Flags().GetBool("hud"); showHUD {
		hud = overlay.NewManager()
		hud.Add(NewHUDCursorWidget(&session, cfg))
		hud.Add(NewHUDStatusWidget(&session, cfg))
	}

	sink := &emitSink{
		primary: sender,
		outputs: outputs,
		hud:     hud,
		width:   cfg.Capture.Width,
		height:  cfg.Capture.Height,
	}

	session = engine.NewSession(engineConfig(cfg), buildAggregator(cfg), sink)

	if cfg.APIPort > 0 {
		server := api.NewServer(mgr, session, preview)
		go func() {
			if err := server.Start(ctx, cfg.APIPort); err != nil {
				logger.WithComponent("main").Error().Err(err).Msg("API server failed")
			}
		}()
	}

	// The engine crops, so capture covers the whole display.
	backend, err := capture.SelectBackend(capture.Region{}, cfg.Capture.FPS, mgr.GetConfigDir())
	if err != nil {
		return err
	}

	logger.WithComponent("main").Info().
		Str("receiver", cfg.ReceiverIP).
		Int("port", cfg.Port).
		Str("backend", backend.Name()).
		Msg("Streaming")
	return runSession(ctx, backend, session)
}
