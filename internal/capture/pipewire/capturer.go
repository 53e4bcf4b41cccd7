package pipewire

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
)

// Capturer delivers portal screen-cast frames to a handler through a
// pipewiresrc → videoconvert → appsink pipeline. The handler runs
// synchronously on the appsink callback; when it blocks, capture-side
// processing throttles with it instead of dropping frames.
type Capturer struct {
	tokenDir string
	fps      int

	mu         sync.Mutex
	handlerErr error
	width      int
	height     int
}

// NewCapturer prepares a portal-backed capturer. Nothing is negotiated
// until Run; tokenDir holds the portal restore token between runs.
func NewCapturer(tokenDir string, fps int) *Capturer {
	return &Capturer{tokenDir: tokenDir, fps: fps}
}

func (c *Capturer) Name() string { return "pipewire" }

// IsAvailable reports whether the desktop portal can be reached. True
// does not guarantee the user will grant the screen-cast.
func (c *Capturer) IsAvailable() bool {
	return Available()
}

// Run performs the portal handshake, starts the pipeline and blocks
// delivering frames until ctx is cancelled, the stream ends, or the
// handler returns an error.
func (c *Capturer) Run(ctx context.Context, handler func(*frame.Sample) error) error {
	log := logger.WithComponent("pipewire")

	portal, err := NewPortal(c.tokenDir)
	if err != nil {
		return err
	}
	defer portal.Close()

	if err := portal.Start(); err != nil {
		return err
	}

	gst.Init(nil)

	src := fmt.Sprintf("pipewiresrc path=%d do-timestamp=true", portal.NodeID())
	if fd := portal.PipeWireFD(); fd >= 0 {
		src = fmt.Sprintf("pipewiresrc fd=%d path=%d do-timestamp=true", fd, portal.NodeID())
	}
	desc := fmt.Sprintf(
		"%s ! videoconvert ! video/x-raw,format=BGRx%s ! "+
			"appsink name=sink max-buffers=2 drop=false sync=false",
		src, c.framerateCaps(),
	)
	log.Debug().Str("pipeline", desc).Msg("Creating capture pipeline")

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return fmt.Errorf("failed to create capture pipeline: %w", err)
	}
	defer func() {
		pipeline.SetState(gst.StateNull)
		pipeline.Unref()
	}()

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		return fmt.Errorf("failed to find appsink: %w", err)
	}
	appsink := app.SinkFromElement(sinkElement)
	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return c.onNewSample(sink, handler)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start capture pipeline: %w", err)
	}
	log.Info().Uint32("node_id", portal.NodeID()).Msg("Capture started")

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Capture stopped")
			return nil
		default:
		}

		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			// The callback signals a handler failure by returning
			// FlowEOS, so check for a stored error first.
			if err := c.takeHandlerErr(); err != nil {
				return err
			}
			log.Info().Msg("Capture stream ended")
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			log.Error().
				Str("error", gerr.Error()).
				Str("debug", gerr.DebugString()).
				Msg("Capture pipeline error")
			if err := c.takeHandlerErr(); err != nil {
				return err
			}
			return fmt.Errorf("capture pipeline error: %s", gerr.Error())
		}
	}
}

func (c *Capturer) framerateCaps() string {
	if c.fps > 0 {
		return fmt.Sprintf(",framerate=%d/1", c.fps)
	}
	return ""
}

// onNewSample converts one gst sample into a frame.Sample and hands it
// to the handler. The buffer stays mapped for the duration of the
// call; the handler must not retain Data.
func (c *Capturer) onNewSample(sink *app.Sink, handler func(*frame.Sample) error) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	width, height := c.dimensions(sample)
	if width <= 0 || height <= 0 {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return gst.FlowOK
	}
	defer buffer.Unmap()

	data := mapInfo.Bytes()
	if len(data) == 0 {
		return gst.FlowOK
	}

	// videoconvert pads rows on some widths; derive the real stride
	// from the buffer size when it disagrees with a packed layout.
	stride := 0
	if expected := width * frame.BytesPerPixel * height; len(data) > expected {
		stride = len(data) / height
	}

	f := &frame.Sample{
		Data:   data,
		Width:  width,
		Height: height,
		Stride: stride,
		Meta:   cursorMeta(sample),
	}
	if err := handler(f); err != nil {
		c.mu.Lock()
		if c.handlerErr == nil {
			c.handlerErr = err
		}
		c.mu.Unlock()
		return gst.FlowEOS
	}
	return gst.FlowOK
}

// dimensions reads the negotiated frame size from the sample caps,
// falling back to the last seen size when caps are missing.
func (c *Capturer) dimensions(sample *gst.Sample) (int, int) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.width, c.height
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.width, c.height
	}

	width, height := 0, 0
	if v, err := structure.GetValue("width"); err == nil {
		if w, ok := v.(int); ok {
			width = w
		}
	}
	if v, err := structure.GetValue("height"); err == nil {
		if h, ok := v.(int); ok {
			height = h
		}
	}
	if width > 0 && height > 0 {
		c.mu.Lock()
		c.width, c.height = width, height
		c.mu.Unlock()
	}
	return width, height
}

func (c *Capturer) takeHandlerErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlerErr
}

// cursorMeta collects sample-attached structures that look like
// pointer metadata so the cursor aggregator can use them. Portal
// cursor coordinates ride on custom buffer metas, but go-gst v0.2.33
// has no structure accessor for those (the custom-meta API is
// GStreamer 1.20), so the caps structures are the only readable
// surface per sample; this is best effort and usually empty.
func cursorMeta(sample *gst.Sample) []frame.MetaStructure {
	caps := sample.GetCaps()
	if caps == nil {
		return nil
	}
	var metas []frame.MetaStructure
	for i := 0; i < caps.GetSize(); i++ {
		structure := caps.GetStructureAt(i)
		if structure == nil {
			continue
		}
		name := strings.ToLower(structure.Name())
		if !strings.Contains(name, "cursor") && !strings.Contains(name, "pointer") {
			continue
		}
		fields := make(map[string]interface{}, 2)
		for _, key := range []string{"x", "y"} {
			if v, err := structure.GetValue(key); err == nil {
				fields[key] = v
			}
		}
		metas = append(metas, frame.MetaStructure{Name: structure.Name(), Fields: fields})
	}
	return metas
}
