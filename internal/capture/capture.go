// Package capture delivers raw display frames to the engine from
// whichever backend the environment supports.
package capture

import (
	"context"
	"errors"

	"github.com/Velaseriat/vp-link/internal/frame"
)

// FrameHandler consumes captured frames synchronously on the capture
// callback. Returning an error stops the capturer; the error comes
// back out of Run.
type FrameHandler func(*frame.Sample) error

// Region is the captured rectangle of the display in root coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Capturer is one capture backend.
type Capturer interface {
	// Run blocks delivering frames to handler until ctx is cancelled,
	// the stream ends, or the handler returns an error.
	Run(ctx context.Context, handler FrameHandler) error

	// Name identifies the backend in logs and diagnostics.
	Name() string

	// IsAvailable reports whether the backend can work in this
	// environment without starting a session.
	IsAvailable() bool
}

// errFirstFrame stops a capture run after one delivered frame.
var errFirstFrame = errors.New("first frame captured")

// Once runs the capturer just long enough to produce a single frame.
func Once(ctx context.Context, c Capturer) (*frame.Sample, error) {
	var captured *frame.Sample
	err := c.Run(ctx, func(f *frame.Sample) error {
		data := make([]byte, len(f.Data))
		copy(data, f.Data)
		captured = &frame.Sample{
			Data:        data,
			Width:       f.Width,
			Height:      f.Height,
			Stride:      f.Stride,
			PlaneOffset: f.PlaneOffset,
		}
		return errFirstFrame
	})
	if captured != nil {
		return captured, nil
	}
	if err == nil {
		err = errors.New("capture ended without a frame")
	}
	return nil, err
}
