package cursor

import (
	"strings"

	"github.com/Velaseriat/vp-link/internal/frame"
)

// MetaSource reads pointer positions out of structures the capture
// pipeline attached to the frame itself. It is the highest-priority
// source because the position was recorded by whatever produced the
// frame, in the frame's own coordinate space.
type MetaSource struct{}

func (MetaSource) Name() string { return "frame-meta" }

func (MetaSource) Sample(f *frame.Sample, _, _ float64) (float64, float64, bool) {
	for _, m := range f.Meta {
		name := strings.ToLower(m.Name)
		if !strings.Contains(name, "cursor") && !strings.Contains(name, "pointer") {
			continue
		}
		x, okX := numericField(m.Fields, "x")
		y, okY := numericField(m.Fields, "y")
		if !okX || !okY {
			continue
		}
		if px, py, ok := classifyCoords(x, y, f.Width, f.Height); ok {
			return px, py, true
		}
	}
	return 0, 0, false
}

// classifyCoords decides how a raw coordinate pair maps into pixel
// space. Values inside the unit square are normalized and scale with
// the frame; values inside the frame's pixel extent are taken as-is;
// anything else is implausible and rejected.
func classifyCoords(x, y float64, width, height int) (float64, float64, bool) {
	fw, fh := float64(width), float64(height)
	switch {
	case x >= 0 && x <= 1 && y >= 0 && y <= 1:
		return x * fw, y * fh, true
	case x >= 0 && x <= fw && y >= 0 && y <= fh:
		return x, y, true
	}
	return 0, 0, false
}

// numericField reads a field that pipelines encode as either floats or
// integers depending on the producer.
func numericField(fields map[string]interface{}, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
