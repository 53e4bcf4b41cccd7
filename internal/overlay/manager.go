package overlay

import (
	"image"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// Manager renders widgets in the order they were added, so later
// widgets draw over earlier ones.
type Manager struct {
	widgets []Widget
	enabled bool
}

// NewManager creates an empty, enabled overlay.
func NewManager() *Manager {
	return &Manager{enabled: true}
}

// Add appends a widget to the render order.
func (m *Manager) Add(w Widget) {
	m.widgets = append(m.widgets, w)
	logger.WithComponent("overlay").Debug().Str("widget", w.Name()).Msg("Added widget")
}

// SetEnabled toggles the whole overlay.
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// Render draws all enabled widgets onto the frame. A widget failure is
// logged and skipped; the frame still goes out.
func (m *Manager) Render(img *image.RGBA) {
	if !m.enabled {
		return
	}
	for _, w := range m.widgets {
		if !w.Enabled() {
			continue
		}
		if err := w.Render(img); err != nil {
			logger.WithComponent("overlay").Warn().
				Err(err).
				Str("widget", w.Name()).
				Msg("Widget render failed")
		}
	}
}
