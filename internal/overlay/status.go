package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// StatusWidget draws one line of text in the top-left corner. The text
// comes from a closure so the widget stays free of engine types.
type StatusWidget struct {
	text    func() string
	padding int
	fg      color.RGBA
	bg      color.RGBA
}

// NewStatusWidget creates the status line. text is polled once per
// rendered frame.
func NewStatusWidget(text func() string) *StatusWidget {
	return &StatusWidget{
		text:    text,
		padding: 4,
		fg:      color.RGBA{255, 255, 255, 255},
		bg:      color.RGBA{0, 0, 0, 160},
	}
}

func (w *StatusWidget) Name() string  { return "status" }
func (w *StatusWidget) Enabled() bool { return w.text != nil }

func (w *StatusWidget) Render(img *image.RGBA) error {
	text := w.text()
	if text == "" {
		return nil
	}

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(w.fg),
		Face: face,
	}
	textWidth := d.MeasureString(text).Ceil()
	lineHeight := face.Metrics().Height.Ceil()

	// Translucent backing so the text reads on any content.
	boxWidth := textWidth + w.padding*2
	boxHeight := lineHeight + w.padding*2
	for y := 0; y < boxHeight; y++ {
		for x := 0; x < boxWidth; x++ {
			blendPixel(img, x, y, w.bg, float64(w.bg.A)/255.0)
		}
	}

	d.Dot = fixed.Point26_6{
		X: fixed.I(w.padding),
		Y: fixed.I(w.padding + face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
	return nil
}
