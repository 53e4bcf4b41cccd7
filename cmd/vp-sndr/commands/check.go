package commands

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/spf13/cobra"

	"github.com/Velaseriat/vp-link/internal/capture"
	"github.com/Velaseriat/vp-link/internal/capture/pipewire"
	"github.com/Velaseriat/vp-link/internal/stream"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Diagnose capture and encoding prerequisites",
	Long: `Check the environment this machine offers: display access, the
screen-cast portal, GStreamer encoder elements and input-device
permissions. Nothing is captured or streamed.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	report := func(name string, ok bool, detail string) {
		mark := "ok  "
		if !ok {
			mark = "FAIL"
		}
		if detail != "" {
			fmt.Printf("  [%s] %-28s %s\n", mark, name, detail)
		} else {
			fmt.Printf("  [%s] %s\n", mark, name)
		}
	}

	fmt.Println("Display:")
	if conn, err := xgb.NewConn(); err != nil {
		report("X connection", false, err.Error())
	} else {
		conn.Close()
		report("X connection", true, os.Getenv("DISPLAY"))
	}
	if w, h, err := capture.DisplayGeometry(); err != nil {
		report("display geometry", false, err.Error())
	} else {
		report("display geometry", true, fmt.Sprintf("%dx%d", w, h))
	}
	report("session type", true, os.Getenv("XDG_SESSION_TYPE"))

	fmt.Println("Capture:")
	report("screen-cast portal", pipewire.Available(), "")
	report("pipewiresrc element", capture.HasGstElement("pipewiresrc"), "")

	fmt.Println("Encoders:")
	for _, enc := range stream.SupportedEncoders() {
		report(enc, capture.HasGstElement(enc), "")
	}

	fmt.Println("Input devices:")
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		report("/dev/input", false, err.Error())
	} else {
		report("/dev/input", true, fmt.Sprintf("%d entries", len(entries)))
	}

	return nil
}
