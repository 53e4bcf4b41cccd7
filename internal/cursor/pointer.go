package cursor

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
)

const (
	// How long the constructor waits for the session worker to come up
	// before declaring the source unavailable.
	sessionReadyTimeout = 4 * time.Second

	// Cadence of the pointer-session dispatch loop.
	pointerPollInterval = 10 * time.Millisecond
)

// PointerSession tracks the pointer through a window-system cursor
// session on a dedicated worker goroutine. The worker only ever
// overwrites one shared cell with its latest observation; readers get
// "latest wins" and nothing stronger. The worker is detached: it runs
// until the X connection drops or the process exits.
type PointerSession struct {
	// offsetX/offsetY translate root-window coordinates into the
	// captured region's frame space.
	offsetX float64
	offsetY float64

	mu   sync.Mutex
	x, y float64
	have bool
}

// NewPointerSession connects to the X server, starts the session worker
// and waits up to sessionReadyTimeout for it to report ready. An error
// means the source is unavailable, which callers treat as degraded
// operation rather than failure.
func NewPointerSession(offsetX, offsetY int) (*PointerSession, error) {
	p := &PointerSession{
		offsetX: float64(offsetX),
		offsetY: float64(offsetY),
	}
	ready := make(chan error, 1)
	go p.run(ready)

	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
	case <-time.After(sessionReadyTimeout):
		return nil, fmt.Errorf("cursor session not ready after %s", sessionReadyTimeout)
	}
	logger.WithComponent("cursor").Info().
		Int("offset_x", offsetX).
		Int("offset_y", offsetY).
		Msg("Pointer session started")
	return p, nil
}

func (p *PointerSession) run(ready chan<- error) {
	conn, err := xgb.NewConn()
	if err != nil {
		ready <- fmt.Errorf("failed to connect to X server: %w", err)
		return
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	ready <- nil

	log := logger.WithComponent("cursor")
	for {
		reply, err := xproto.QueryPointer(conn, root).Reply()
		if err != nil {
			log.Warn().Err(err).Msg("Pointer session ended, holding last position")
			conn.Close()
			return
		}
		p.mu.Lock()
		p.x = float64(reply.RootX)
		p.y = float64(reply.RootY)
		p.have = true
		p.mu.Unlock()
		time.Sleep(pointerPollInterval)
	}
}

func (p *PointerSession) Name() string { return "pointer-session" }

func (p *PointerSession) Sample(_ *frame.Sample, _, _ float64) (float64, float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.have {
		return 0, 0, false
	}
	return p.x - p.offsetX, p.y - p.offsetY, true
}
