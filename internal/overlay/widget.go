// Package overlay draws the optional HUD onto emitted frames: a status
// line and a cursor marker. Widgets render in crop-local coordinates
// after the crop, so they never affect the follow math.
package overlay

import (
	"image"
	"image/color"
)

// Widget is one renderable HUD element.
type Widget interface {
	// Name identifies the widget in logs.
	Name() string

	// Enabled reports whether the widget should render this frame.
	Enabled() bool

	// Render draws the widget onto the frame in place.
	Render(img *image.RGBA) error
}

// blendPixel writes src over dst at (x, y) with the given opacity,
// clipping out-of-bounds coordinates.
func blendPixel(dst *image.RGBA, x, y int, src color.RGBA, opacity float64) {
	if !(image.Point{X: x, Y: y}).In(dst.Bounds()) {
		return
	}
	alpha := float64(src.A) / 255.0 * opacity
	if alpha <= 0 {
		return
	}
	d := dst.RGBAAt(x, y)
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(src.R)*alpha + float64(d.R)*(1-alpha)),
		G: uint8(float64(src.G)*alpha + float64(d.G)*(1-alpha)),
		B: uint8(float64(src.B)*alpha + float64(d.B)*(1-alpha)),
		A: 0xff,
	})
}
