// Package engine drives one follow-crop session: it resolves the
// pointer, advances the follow controller, decimates, crops and stamps
// every frame the capture side delivers.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Velaseriat/vp-link/internal/cursor"
	"github.com/Velaseriat/vp-link/internal/follow"
	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
)

// Sink consumes emitted frames. Push may block; that backpressure is
// how a slow consumer throttles capture-side processing.
type Sink interface {
	Push(buf []byte, pts, duration time.Duration) error
}

// Result classifies what happened to one input frame.
type Result int

const (
	// ResultEmitted means the frame was cropped and pushed downstream.
	ResultEmitted Result = iota
	// ResultSkipped means decimation dropped the frame before any pixel
	// work happened.
	ResultSkipped
	// ResultFailed means a fatal error aborted the session.
	ResultFailed
)

// Default cadence for the follow-state diagnostics tick.
const defaultStateInterval = 500 * time.Millisecond

// Config fixes one session's geometry, pacing and follow behavior.
type Config struct {
	OutWidth  int
	OutHeight int
	InitialX  int
	InitialY  int
	SourceFPS int
	FrameSkip int

	FollowEnabled bool
	Smoothing     float64
	DeadzonePct   float64
	Policy        follow.Policy

	// StateInterval rate-limits the follow-state log line and listener
	// broadcasts. Zero means the default of 500ms.
	StateInterval time.Duration
}

// Snapshot is a point-in-time view of a running session, consumed by
// the API and the preview overlay.
type Snapshot struct {
	CenterX       float64 `json:"center_x"`
	CenterY       float64 `json:"center_y"`
	CursorX       float64 `json:"cursor_x"`
	CursorY       float64 `json:"cursor_y"`
	TargetX       float64 `json:"target_x"`
	TargetY       float64 `json:"target_y"`
	Following     bool    `json:"following"`
	OriginX       int     `json:"origin_x"`
	OriginY       int     `json:"origin_y"`
	InputFrames   uint64  `json:"input_frames"`
	EmittedFrames uint64  `json:"emitted_frames"`
	CursorSource  string  `json:"cursor_source"`
	OutputFPS     int     `json:"output_fps"`
}

// Session owns the per-frame pipeline. HandleFrame is invoked
// synchronously from the capture callback; Snapshot, Subscribe and
// Failed may be called from any goroutine.
type Session struct {
	cfg     Config
	agg     *cursor.Aggregator
	ctl     *follow.Controller
	cropper *frame.Cropper
	pacer   *frame.Pacer
	sink    Sink
	log     *zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	failed      error
	inputs      uint64
	emitted     uint64
	lastOriginX int
	lastOriginY int
	lastSource  string
	nextLogAt   time.Time
	listeners   []chan Snapshot
}

// NewSession wires a session together. agg may be nil when no cursor
// source is available or following is disabled; the crop then stays on
// its initial rectangle.
func NewSession(cfg Config, agg *cursor.Aggregator, sink Sink) *Session {
	if cfg.StateInterval <= 0 {
		cfg.StateInterval = defaultStateInterval
	}
	if cfg.Policy == "" {
		cfg.Policy = follow.PolicyDeadzone
	}
	now := time.Now()
	s := &Session{
		cfg: cfg,
		agg: agg,
		ctl: follow.New(follow.Config{
			OutWidth:    cfg.OutWidth,
			OutHeight:   cfg.OutHeight,
			Smoothing:   cfg.Smoothing,
			DeadzonePct: cfg.DeadzonePct,
			Policy:      cfg.Policy,
		}, cfg.InitialX, cfg.InitialY, now),
		cropper:     frame.NewCropper(cfg.OutWidth, cfg.OutHeight),
		pacer:       frame.NewPacer(cfg.SourceFPS, cfg.FrameSkip),
		sink:        sink,
		log:         logger.WithComponent("engine"),
		now:         time.Now,
		lastOriginX: cfg.InitialX,
		lastOriginY: cfg.InitialY,
		lastSource:  "none",
	}
	s.log.Info().
		Int("out_width", cfg.OutWidth).
		Int("out_height", cfg.OutHeight).
		Int("source_fps", cfg.SourceFPS).
		Int("output_fps", s.pacer.OutputFPS()).
		Bool("follow", cfg.FollowEnabled).
		Str("policy", string(cfg.Policy)).
		Msg("Session ready")
	return s
}

// HandleFrame processes one captured frame. It returns ResultEmitted
// with a nil error, ResultSkipped for decimated frames, or
// ResultFailed with the fatal error that aborted the session. Once a
// session has failed every later call returns the same error, so the
// capture side can tear down on first sight of it.
func (s *Session) HandleFrame(f *frame.Sample) (Result, error) {
	s.mu.Lock()
	if s.failed != nil {
		err := s.failed
		s.mu.Unlock()
		return ResultFailed, err
	}
	s.mu.Unlock()

	now := s.now()

	var (
		resolved cursor.Sample
		haveCur  bool
	)
	if s.cfg.FollowEnabled && s.agg != nil {
		resolved, haveCur = s.agg.Resolve(f)
	}

	ox, oy := s.ctl.Update(follow.Input{
		Now:        now,
		SrcWidth:   f.Width,
		SrcHeight:  f.Height,
		CursorX:    resolved.X,
		CursorY:    resolved.Y,
		HaveCursor: haveCur,
	})

	s.mu.Lock()
	s.inputs++
	pts, dur, admit := s.pacer.Admit()
	s.lastOriginX, s.lastOriginY = ox, oy
	if haveCur {
		s.lastSource = resolved.Source
	}
	logDue := !now.Before(s.nextLogAt)
	if logDue {
		s.nextLogAt = now.Add(s.cfg.StateInterval)
	}
	s.mu.Unlock()

	if logDue {
		snap := s.Snapshot()
		s.log.Debug().
			Float64("center_x", snap.CenterX).
			Float64("center_y", snap.CenterY).
			Int("origin_x", snap.OriginX).
			Int("origin_y", snap.OriginY).
			Bool("following", snap.Following).
			Str("cursor_source", snap.CursorSource).
			Uint64("input_frames", snap.InputFrames).
			Msg("Follow state")
		s.notifyListeners(snap)
	}

	if !admit {
		return ResultSkipped, nil
	}

	buf, err := s.cropper.Crop(f, ox, oy)
	if err != nil {
		return ResultFailed, s.fail(fmt.Errorf("crop frame: %w", err))
	}
	if err := s.sink.Push(buf, pts, dur); err != nil {
		return ResultFailed, s.fail(fmt.Errorf("push emitted frame: %w", err))
	}

	s.mu.Lock()
	s.emitted++
	s.mu.Unlock()
	return ResultEmitted, nil
}

// fail records the first fatal error; later failures keep the
// original.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.failed != nil {
		err = s.failed
		s.mu.Unlock()
		return err
	}
	s.failed = err
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("Fatal frame-processing error, aborting session")
	return err
}

// Failed returns the fatal error that stopped the session, or nil.
func (s *Session) Failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	st := s.ctl.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CenterX:       st.CenterX,
		CenterY:       st.CenterY,
		CursorX:       st.CursorX,
		CursorY:       st.CursorY,
		TargetX:       st.TargetX,
		TargetY:       st.TargetY,
		Following:     st.Following,
		OriginX:       s.lastOriginX,
		OriginY:       s.lastOriginY,
		InputFrames:   s.inputs,
		EmittedFrames: s.emitted,
		CursorSource:  s.lastSource,
		OutputFPS:     s.pacer.OutputFPS(),
	}
}

// Subscribe registers a listener for follow-state broadcasts. The
// channel is buffered; broadcasts a slow listener cannot absorb are
// dropped, never queued.
func (s *Session) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 10)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (s *Session) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *Session) notifyListeners(snap Snapshot) {
	s.mu.Lock()
	listeners := make([]chan Snapshot, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}
