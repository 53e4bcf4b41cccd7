package frame

import "fmt"

// SizeError reports a source frame smaller than the configured output
// window. This is a persistent contract violation; the session must not
// retry.
type SizeError struct {
	SrcWidth, SrcHeight int
	OutWidth, OutHeight int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("source frame %dx%d smaller than output %dx%d",
		e.SrcWidth, e.SrcHeight, e.OutWidth, e.OutHeight)
}

// BoundsError reports a crop row whose computed byte range falls outside
// the source buffer, which means the stride or size metadata lied.
type BoundsError struct {
	Offset int
	Length int
	BufLen int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("crop row [%d:%d] outside source buffer of %d bytes",
		e.Offset, e.Offset+e.Length, e.BufLen)
}

// Cropper copies a fixed-size window out of source frames into freshly
// allocated buffers.
type Cropper struct {
	outW int
	outH int
}

func NewCropper(outW, outH int) *Cropper {
	return &Cropper{outW: outW, outH: outH}
}

// Crop copies the output-sized window at origin (x, y) from s. The
// returned buffer is newly allocated and owned by the caller.
func (c *Cropper) Crop(s *Sample, x, y int) ([]byte, error) {
	if s.Width < c.outW || s.Height < c.outH {
		return nil, &SizeError{
			SrcWidth: s.Width, SrcHeight: s.Height,
			OutWidth: c.outW, OutHeight: c.outH,
		}
	}

	stride := s.RowStride()
	rowLen := c.outW * BytesPerPixel
	out := make([]byte, c.outH*rowLen)
	for r := 0; r < c.outH; r++ {
		srcOff := s.PlaneOffset + (y+r)*stride + x*BytesPerPixel
		if srcOff < 0 || srcOff+rowLen > len(s.Data) {
			return nil, &BoundsError{Offset: srcOff, Length: rowLen, BufLen: len(s.Data)}
		}
		copy(out[r*rowLen:(r+1)*rowLen], s.Data[srcOff:srcOff+rowLen])
	}
	return out, nil
}

// OutWidth returns the configured output width in pixels.
func (c *Cropper) OutWidth() int { return c.outW }

// OutHeight returns the configured output height in pixels.
func (c *Cropper) OutHeight() int { return c.outH }
