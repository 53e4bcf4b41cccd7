package cursor

import (
	"testing"

	"github.com/Velaseriat/vp-link/internal/frame"
)

func metaFrame(meta ...frame.MetaStructure) *frame.Sample {
	return &frame.Sample{Width: 1920, Height: 1080, Meta: meta}
}

func TestMetaSourceClassification(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]interface{}
		wantX  float64
		wantY  float64
		wantOK bool
	}{
		{
			name:   "normalized scales with frame",
			fields: map[string]interface{}{"x": 0.5, "y": 0.25},
			wantX:  960, wantY: 270, wantOK: true,
		},
		{
			name: "unit square boundary reads as normalized",
			// (1,1) could be the pixel next to the origin, but the
			// normalized interpretation takes precedence.
			fields: map[string]interface{}{"x": 1.0, "y": 1.0},
			wantX:  1920, wantY: 1080, wantOK: true,
		},
		{
			name:   "absolute pixels pass through",
			fields: map[string]interface{}{"x": 960.5, "y": 200.0},
			wantX:  960.5, wantY: 200, wantOK: true,
		},
		{
			name:   "integer fields are accepted",
			fields: map[string]interface{}{"x": 800, "y": int32(400)},
			wantX:  800, wantY: 400, wantOK: true,
		},
		{
			name:   "out of range is implausible",
			fields: map[string]interface{}{"x": 5000.0, "y": 200.0},
			wantOK: false,
		},
		{
			name:   "negative is implausible",
			fields: map[string]interface{}{"x": -3.0, "y": 5.0},
			wantOK: false,
		},
		{
			name:   "missing component is skipped",
			fields: map[string]interface{}{"x": 10.0},
			wantOK: false,
		},
		{
			name:   "non-numeric component is skipped",
			fields: map[string]interface{}{"x": "10", "y": 20.0},
			wantOK: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := metaFrame(frame.MetaStructure{Name: "MouseCursorMeta", Fields: tc.fields})
			x, y, ok := MetaSource{}.Sample(f, 0, 0)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && (x != tc.wantX || y != tc.wantY) {
				t.Errorf("sample = (%v, %v), want (%v, %v)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestMetaSourceNameFilter(t *testing.T) {
	fields := map[string]interface{}{"x": 100.0, "y": 100.0}
	cases := []struct {
		structName string
		wantOK     bool
	}{
		{"MouseCursorMeta", true},
		{"pointer-position", true},
		{"GstVideoPointerInfo", true},
		{"video-info", false},
		{"timestamp", false},
	}
	for _, tc := range cases {
		t.Run(tc.structName, func(t *testing.T) {
			f := metaFrame(frame.MetaStructure{Name: tc.structName, Fields: fields})
			_, _, ok := MetaSource{}.Sample(f, 0, 0)
			if ok != tc.wantOK {
				t.Errorf("structure %q: ok = %v, want %v", tc.structName, ok, tc.wantOK)
			}
		})
	}
}

func TestMetaSourceFallsThroughImplausibleStructures(t *testing.T) {
	f := metaFrame(
		frame.MetaStructure{Name: "cursor-a", Fields: map[string]interface{}{"x": -900.0, "y": 10.0}},
		frame.MetaStructure{Name: "cursor-b", Fields: map[string]interface{}{"x": 300.0, "y": 400.0}},
	)
	x, y, ok := MetaSource{}.Sample(f, 0, 0)
	if !ok || x != 300 || y != 400 {
		t.Errorf("sample = (%v, %v, %v), want (300, 400, true)", x, y, ok)
	}
}

func TestMetaSourceNoMeta(t *testing.T) {
	if _, _, ok := (MetaSource{}).Sample(&frame.Sample{Width: 640, Height: 480}, 0, 0); ok {
		t.Error("sample reported from a frame without metadata")
	}
}
