package follow

import (
	"math"
	"sync"
	"time"
)

// Policy selects how the controller picks its target when the cursor
// moves.
type Policy string

const (
	// PolicyDeadzone retargets once the cursor leaves a fixed-percentage
	// deadzone around the current center. This is the default.
	PolicyDeadzone Policy = "deadzone"
	// PolicyBoundary is the legacy mode: retargeting starts only once the
	// cursor leaves the current crop rectangle itself.
	PolicyBoundary Policy = "boundary"
)

const (
	// Cursor movement below this many pixels is treated as stationary.
	moveEpsilon       = 0.25
	legacyMoveEpsilon = 0.001

	// Once the squared distance to the target drops below this, the
	// center snaps to the target and following stops.
	settleEpsilon = 0.75

	// Floor for the integration step, seconds.
	minStep = 1e-6
)

// Config fixes the output geometry and response of a controller for one
// session.
type Config struct {
	OutWidth  int
	OutHeight int

	// Smoothing is the exponential response rate in 1/s; higher values
	// converge faster.
	Smoothing float64

	// DeadzonePct is the deadzone size as a percentage of the output
	// dimensions. Zero snaps the target directly onto the cursor.
	DeadzonePct float64

	Policy Policy
}

// Input carries one frame's worth of controller input.
type Input struct {
	Now       time.Time
	SrcWidth  int
	SrcHeight int

	// CursorX/CursorY are the resolved pointer position in source-frame
	// pixels. Ignored when HaveCursor is false, in which case the
	// previously accepted position is reused.
	CursorX    float64
	CursorY    float64
	HaveCursor bool
}

// State is a snapshot of the controller's crop-center state.
type State struct {
	CenterX, CenterY float64
	CursorX, CursorY float64
	TargetX, TargetY float64
	Following        bool
	LastUpdate       time.Time
}

// Controller moves the crop center toward the pointer with exponential
// smoothing. Update must be called from a single goroutine (the frame
// callback); Snapshot may be called from any goroutine.
type Controller struct {
	cfg   Config
	halfW float64
	halfH float64

	mu    sync.Mutex
	state State
}

// New returns a controller seeded on the center of the initial crop
// rectangle at origin (initialX, initialY).
func New(cfg Config, initialX, initialY int, now time.Time) *Controller {
	if cfg.Policy == "" {
		cfg.Policy = PolicyDeadzone
	}
	cx := float64(initialX) + float64(cfg.OutWidth)/2
	cy := float64(initialY) + float64(cfg.OutHeight)/2
	return &Controller{
		cfg:   cfg,
		halfW: float64(cfg.OutWidth) * cfg.DeadzonePct / 200,
		halfH: float64(cfg.OutHeight) * cfg.DeadzonePct / 200,
		state: State{
			CenterX: cx, CenterY: cy,
			CursorX: cx, CursorY: cy,
			TargetX: cx, TargetY: cy,
			LastUpdate: now,
		},
	}
}

// Update advances the controller by one frame and returns the crop
// origin for that frame.
func (c *Controller) Update(in Input) (originX, originY int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	dt := in.Now.Sub(s.LastUpdate).Seconds()
	if dt < minStep {
		dt = minStep
	}
	s.LastUpdate = in.Now

	if in.HaveCursor {
		cx := clamp(in.CursorX, 0, float64(in.SrcWidth-1))
		cy := clamp(in.CursorY, 0, float64(in.SrcHeight-1))
		eps := moveEpsilon
		if c.cfg.Policy == PolicyBoundary {
			eps = legacyMoveEpsilon
		}
		moved := math.Abs(cx-s.CursorX) > eps || math.Abs(cy-s.CursorY) > eps
		s.CursorX, s.CursorY = cx, cy

		switch c.cfg.Policy {
		case PolicyBoundary:
			c.retargetBoundary(moved, in.SrcWidth, in.SrcHeight)
		default:
			c.retargetDeadzone(moved)
		}
	}
	if !s.Following {
		s.TargetX, s.TargetY = s.CenterX, s.CenterY
	}

	alpha := 1 - math.Exp(-c.cfg.Smoothing*dt)
	s.CenterX += (s.TargetX - s.CenterX) * alpha
	s.CenterY += (s.TargetY - s.CenterY) * alpha

	if s.Following {
		dx := s.TargetX - s.CenterX
		dy := s.TargetY - s.CenterY
		if dx*dx+dy*dy < settleEpsilon*settleEpsilon {
			s.CenterX, s.CenterY = s.TargetX, s.TargetY
			s.Following = false
		}
	}

	return c.originLocked(in.SrcWidth, in.SrcHeight)
}

// retargetDeadzone pulls the cursor back to the nearest deadzone edge,
// per axis; axes still inside the deadzone keep the current center. A
// move that lands fully inside the deadzone retargets onto the current
// center so an in-flight chase stops there instead of gliding on
// toward the old target.
func (c *Controller) retargetDeadzone(moved bool) {
	s := &c.state
	if !moved {
		return
	}
	dx := s.CursorX - s.CenterX
	dy := s.CursorY - s.CenterY
	if math.Abs(dx) <= c.halfW && math.Abs(dy) <= c.halfH {
		s.TargetX, s.TargetY = s.CenterX, s.CenterY
		return
	}
	tx, ty := s.CenterX, s.CenterY
	if dx > c.halfW {
		tx = s.CursorX - c.halfW
	} else if dx < -c.halfW {
		tx = s.CursorX + c.halfW
	}
	if dy > c.halfH {
		ty = s.CursorY - c.halfH
	} else if dy < -c.halfH {
		ty = s.CursorY + c.halfH
	}
	s.TargetX, s.TargetY = tx, ty
	s.Following = true
}

// retargetBoundary activates once the cursor exits the crop rectangle
// implied by the current center, then chases the raw cursor position.
func (c *Controller) retargetBoundary(moved bool, srcW, srcH int) {
	s := &c.state
	ox, oy := c.originLocked(srcW, srcH)
	left, top := float64(ox), float64(oy)
	right := left + float64(c.cfg.OutWidth)
	bottom := top + float64(c.cfg.OutHeight)
	inBounds := s.CursorX >= left && s.CursorX < right &&
		s.CursorY >= top && s.CursorY < bottom

	activated := false
	if !inBounds && !s.Following {
		s.Following = true
		activated = true
	}
	if s.Following && (moved || activated) {
		s.TargetX, s.TargetY = s.CursorX, s.CursorY
	}
}

// Origin returns the crop origin implied by the current center without
// advancing the controller.
func (c *Controller) Origin(srcW, srcH int) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.originLocked(srcW, srcH)
}

func (c *Controller) originLocked(srcW, srcH int) (int, int) {
	maxX := float64(srcW - c.cfg.OutWidth)
	maxY := float64(srcH - c.cfg.OutHeight)
	x := clamp(c.state.CenterX-float64(c.cfg.OutWidth)/2, 0, maxX)
	y := clamp(c.state.CenterY-float64(c.cfg.OutHeight)/2, 0, maxY)
	return int(math.Round(x)), int(math.Round(y))
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
