package output

import (
	"image"
)

// BGRxToRGBA converts a packed BGRx buffer, as the capture pipelines
// and cropper produce, into an image.RGBA. stride <= 0 means tightly
// packed rows.
func BGRxToRGBA(data []byte, width, height, stride int) *image.RGBA {
	if stride <= 0 {
		stride = width * 4
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			dst[x*4+0] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4+0]
			dst[x*4+3] = 0xff
		}
	}
	return img
}
