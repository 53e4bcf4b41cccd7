package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/config"
	"github.com/Velaseriat/vp-link/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "vp-sndr",
		Short: "vp-sndr - pointer-following screen region streamer",
		Long: `vp-sndr captures a display, keeps a crop window centered on the
pointer with configurable smoothing, and streams the crop as RTP over
UDP or records it to a WebM file.

Commands:
  send     stream the crop to a receiver as RTP
  record   record the crop to a WebM file
  frame    capture one cropped frame as PNG
  check    diagnose capture and encoding prerequisites
  config   view and edit the saved configuration`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel, true)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vp-link/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig opens the config manager honoring the --config flag. An
// explicit --log-level wins over the saved one.
func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		mgr.GetViper().Set("log_level", logLevel)
	}
	return mgr, nil
}
