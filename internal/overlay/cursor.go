package overlay

import (
	"image"
	"image/color"
)

// CursorWidget draws a crosshair at the tracked pointer position. The
// position closure returns crop-local coordinates and whether the
// pointer is inside the crop this frame.
type CursorWidget struct {
	position func() (x, y float64, visible bool)
	arm      int
	col      color.RGBA
	shadow   color.RGBA
}

// NewCursorWidget creates the marker. position is polled once per
// rendered frame.
func NewCursorWidget(position func() (x, y float64, visible bool)) *CursorWidget {
	return &CursorWidget{
		position: position,
		arm:      8,
		col:      color.RGBA{255, 220, 0, 255},
		shadow:   color.RGBA{0, 0, 0, 200},
	}
}

func (w *CursorWidget) Name() string  { return "cursor" }
func (w *CursorWidget) Enabled() bool { return w.position != nil }

func (w *CursorWidget) Render(img *image.RGBA) error {
	fx, fy, visible := w.position()
	if !visible {
		return nil
	}
	cx, cy := int(fx), int(fy)

	// Shadow first, one pixel offset, so the marker reads on light and
	// dark content alike.
	w.cross(img, cx+1, cy+1, w.shadow)
	w.cross(img, cx, cy, w.col)
	return nil
}

func (w *CursorWidget) cross(img *image.RGBA, cx, cy int, c color.RGBA) {
	for d := -w.arm; d <= w.arm; d++ {
		// Leave a small gap around the center.
		if d > -3 && d < 3 {
			continue
		}
		blendPixel(img, cx+d, cy, c, 1.0)
		blendPixel(img, cx, cy+d, c, 1.0)
	}
}
