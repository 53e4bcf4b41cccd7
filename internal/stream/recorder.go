package stream

import (
	"fmt"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// RecorderConfig fixes one recording session.
type RecorderConfig struct {
	Path        string
	Width       int
	Height      int
	FPS         int
	BitrateKbps int
}

// Recorder encodes emitted frames as VP8 and writes a WebM file. It
// implements engine.Sink.
type Recorder struct {
	*pipelineSink
	cfg RecorderConfig
}

// NewRecorder builds the recorder pipeline for the given output path.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = 4000
	}

	enc, err := EncoderStage("vp8enc", cfg.FPS, cfg.BitrateKbps)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf(
		"appsrc name=src is-live=true format=time block=true caps=%s ! "+
			"videoconvert ! %s ! webmmux ! filesink location=%s",
		rawCaps(cfg.Width, cfg.Height, cfg.FPS), enc, cfg.Path,
	)

	sink, err := newPipelineSink(desc, "recorder")
	if err != nil {
		return nil, err
	}

	logger.WithComponent("recorder").Info().
		Str("path", cfg.Path).
		Int("fps", cfg.FPS).
		Int("bitrate_kbps", cfg.BitrateKbps).
		Msg("WebM recorder ready")
	return &Recorder{pipelineSink: sink, cfg: cfg}, nil
}
