package overlay

import (
	"image"
	"testing"
)

func TestManagerRenderOrderAndToggle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))

	m := NewManager()
	m.Add(NewStatusWidget(func() string { return "fps 30" }))
	m.Render(img)

	if !hasNonZeroPixel(img) {
		t.Fatal("status widget rendered nothing")
	}

	img = image.NewRGBA(image.Rect(0, 0, 64, 32))
	m.SetEnabled(false)
	m.Render(img)
	if hasNonZeroPixel(img) {
		t.Fatal("disabled overlay still rendered")
	}
}

func TestCursorWidgetVisibility(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	w := NewCursorWidget(func() (float64, float64, bool) { return 32, 32, true })
	if err := w.Render(img); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !hasNonZeroPixel(img) {
		t.Fatal("visible cursor rendered nothing")
	}

	img = image.NewRGBA(image.Rect(0, 0, 64, 64))
	w = NewCursorWidget(func() (float64, float64, bool) { return 32, 32, false })
	if err := w.Render(img); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if hasNonZeroPixel(img) {
		t.Fatal("hidden cursor rendered pixels")
	}
}

func TestCursorWidgetClipsAtEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	w := NewCursorWidget(func() (float64, float64, bool) { return 0, 0, true })
	if err := w.Render(img); err != nil {
		t.Fatalf("Render at edge: %v", err)
	}
}

func hasNonZeroPixel(img *image.RGBA) bool {
	for _, b := range img.Pix {
		if b != 0 {
			return true
		}
	}
	return false
}
