// Package output renders emitted frames locally: an MJPEG preview over
// HTTP and an X11 window. Both are side channels next to the real RTP
// or file sink.
package output

import (
	"image"
)

// Output is one local frame consumer.
type Output interface {
	// Start initializes the output mechanism.
	Start() error

	// Stop cleanly shuts down the output.
	Stop() error

	// WriteFrame sends one RGBA frame to the output.
	WriteFrame(frame *image.RGBA) error

	// Name returns a human-readable name for this output type.
	Name() string

	// IsRunning returns true if the output is currently active.
	IsRunning() bool
}

// Config holds common configuration for all output types.
type Config struct {
	Width  int
	Height int
	FPS    int
}
