package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// pipelineSink is the shared machinery behind the sender and the
// recorder: an appsrc-fed pipeline, a bus watcher goroutine, and a
// blocking Push that carries the engine's backpressure contract.
type pipelineSink struct {
	pipeline *gst.Pipeline
	src      *app.Source
	log      *zerolog.Logger

	mu      sync.Mutex
	running bool
	busErr  error
	done    chan struct{}
}

// newPipelineSink parses desc, which must contain an appsrc named
// "src". The pipeline stays in NULL until Start.
func newPipelineSink(desc, component string) (*pipelineSink, error) {
	gst.Init(nil)

	log := logger.WithComponent(component)
	log.Debug().Str("pipeline", desc).Msg("Creating pipeline")

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	srcElement, err := pipeline.GetElementByName("src")
	if err != nil {
		pipeline.Unref()
		return nil, fmt.Errorf("failed to find appsrc in pipeline: %w", err)
	}

	return &pipelineSink{
		pipeline: pipeline,
		src:      app.SrcFromElement(srcElement),
		log:      log,
	}, nil
}

// Start moves the pipeline to PLAYING and spawns the bus watcher.
func (p *pipelineSink) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("sink already running")
	}
	if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	p.running = true
	p.done = make(chan struct{})
	go p.watchBus(p.done)
	return nil
}

// watchBus drains pipeline messages until the sink stops. An error
// message marks the sink failed; the next Push surfaces it.
func (p *pipelineSink) watchBus(done chan struct{}) {
	bus := p.pipeline.GetPipelineBus()
	for {
		select {
		case <-done:
			return
		default:
		}
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			p.log.Error().
				Str("error", gerr.Error()).
				Str("debug", gerr.DebugString()).
				Msg("Pipeline error")
			p.mu.Lock()
			if p.busErr == nil {
				p.busErr = fmt.Errorf("pipeline error: %s", gerr.Error())
			}
			p.mu.Unlock()
			return
		case gst.MessageEOS:
			p.log.Debug().Msg("Pipeline reached EOS")
			return
		}
	}
}

// Push implements engine.Sink. It wraps the frame bytes in a gst
// buffer, stamps it, and hands it to the appsrc. The appsrc is
// configured with block=true, so a congested encoder throttles the
// caller instead of dropping frames.
func (p *pipelineSink) Push(buf []byte, pts, duration time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("sink not running")
	}
	if p.busErr != nil {
		err := p.busErr
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	buffer := gst.NewBufferFromBytes(buf)
	buffer.SetPresentationTimestamp(pts)
	buffer.SetDuration(duration)

	if ret := p.src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("appsrc rejected buffer: flow %v", ret)
	}
	return nil
}

// Stop ends the stream: EOS through the appsrc so muxers can finalize,
// then NULL. Safe to call once per Start.
func (p *pipelineSink) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	done := p.done
	p.mu.Unlock()

	p.src.EndStream()

	// Give the pipeline a moment to flush the EOS downstream; the
	// recorder's muxer needs it to write a valid file.
	bus := p.pipeline.GetPipelineBus()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		if msg.Type() == gst.MessageEOS || msg.Type() == gst.MessageError {
			break
		}
	}

	close(done)
	p.pipeline.SetState(gst.StateNull)
	p.pipeline.Unref()
	p.log.Info().Msg("Sink stopped")
	return nil
}

// Err returns the first bus error seen, if any.
func (p *pipelineSink) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busErr
}

// rawCaps describes the engine's output buffers to the appsrc.
func rawCaps(width, height, fps int) string {
	return fmt.Sprintf("video/x-raw,format=BGRx,width=%d,height=%d,framerate=%d/1",
		width, height, fps)
}
