// Package frame holds the pixel-level types the capture side hands to
// the engine: the raw sample model, the window cropper, and the output
// pacer. Everything here is plain bytes and arithmetic so it runs
// without a display server.
package frame

// BytesPerPixel is fixed by the BGRx/RGBA formats the capture pipelines
// negotiate.
const BytesPerPixel = 4

// Sample is one captured frame. Data is borrowed by the engine for the
// duration of a crop and never written to.
type Sample struct {
	Data   []byte
	Width  int
	Height int

	// Stride is the source row length in bytes. Zero or negative means
	// tightly packed (Width*4).
	Stride int

	// PlaneOffset is the byte offset of the pixel plane within Data.
	PlaneOffset int

	// Meta carries structures the capture pipeline attached to the
	// frame, searched by the cursor aggregator. Usually nil.
	Meta []MetaStructure
}

// MetaStructure is a named bag of fields attached to a frame.
type MetaStructure struct {
	Name   string
	Fields map[string]interface{}
}

// RowStride returns the effective row stride of the sample.
func (s *Sample) RowStride() int {
	if s.Stride > 0 {
		return s.Stride
	}
	return s.Width * BytesPerPixel
}
