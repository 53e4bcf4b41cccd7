package stream

import (
	"fmt"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// SenderConfig fixes one RTP session.
type SenderConfig struct {
	Host        string
	Port        int
	Width       int
	Height      int
	FPS         int
	Encoder     string
	BitrateKbps int
}

// Sender encodes emitted frames and sends them as RTP over UDP. It
// implements engine.Sink.
type Sender struct {
	*pipelineSink
	cfg SenderConfig
}

// NewSender builds the sender pipeline. The encoder name is resolved
// through the encoder table; unknown names fail here, before any
// session starts.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("receiver host is required")
	}

	enc, err := EncoderStage(cfg.Encoder, cfg.FPS, cfg.BitrateKbps)
	if err != nil {
		return nil, err
	}
	rtp, err := RTPStage(cfg.Encoder)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf(
		"appsrc name=src is-live=true format=time block=true caps=%s ! "+
			"queue max-size-buffers=4 max-size-bytes=0 max-size-time=0 ! "+
			"videoconvert ! video/x-raw,format=I420 ! "+
			"%s ! %s ! "+
			"udpsink host=%s port=%d sync=false async=false",
		rawCaps(cfg.Width, cfg.Height, cfg.FPS), enc, rtp, cfg.Host, cfg.Port,
	)

	sink, err := newPipelineSink(desc, "sender")
	if err != nil {
		return nil, err
	}

	logger.WithComponent("sender").Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("encoder", cfg.Encoder).
		Int("bitrate_kbps", cfg.BitrateKbps).
		Int("fps", cfg.FPS).
		Msg("RTP sender ready")
	return &Sender{pipelineSink: sink, cfg: cfg}, nil
}
