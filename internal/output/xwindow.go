package output

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// XWindowOutput shows emitted frames in a plain X11 window, mostly for
// checking the crop locally without a receiver.
type XWindowOutput struct {
	config Config

	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext

	mu      sync.Mutex
	running bool
}

// NewXWindowOutput connects to the X server; the window itself is
// created in Start.
func NewXWindowOutput(config Config) (*XWindowOutput, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	return &XWindowOutput{
		config: config,
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
	}, nil
}

func (o *XWindowOutput) Name() string { return "xwindow" }

func (o *XWindowOutput) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start creates and maps the window with a persistent GC.
func (o *XWindowOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("window output already running")
	}

	windowID, err := xproto.NewWindowId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	o.window = windowID

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}
	err = xproto.CreateWindowChecked(
		o.conn,
		o.screen.RootDepth,
		o.window,
		o.screen.Root,
		0, 0,
		uint16(o.config.Width), uint16(o.config.Height),
		0,
		xproto.WindowClassInputOutput,
		o.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	log := logger.WithComponent("xwindow")
	if err := o.setTitle("vp-link preview"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window title")
	}
	if err := o.setClass("vp-link", "vp-link"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window class")
	}

	if err := xproto.MapWindowChecked(o.conn, o.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}
	o.conn.Sync()

	gc, err := xproto.NewGcontextId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	o.gc = gc
	err = xproto.CreateGCChecked(
		o.conn,
		o.gc,
		xproto.Drawable(o.window),
		0,
		nil,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}
	o.conn.Sync()

	o.running = true
	log.Info().
		Int("width", o.config.Width).
		Int("height", o.config.Height).
		Uint32("window_id", uint32(o.window)).
		Msg("Preview window created")
	return nil
}

// Stop destroys the window and closes the connection.
func (o *XWindowOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return nil
	}
	o.running = false

	if o.gc != 0 {
		xproto.FreeGC(o.conn, o.gc)
	}
	if o.window != 0 {
		xproto.DestroyWindow(o.conn, o.window)
		o.conn.Sync()
	}
	o.conn.Close()
	logger.WithComponent("xwindow").Info().Msg("Preview window closed")
	return nil
}

// WriteFrame puts one frame onto the window. The frame must match the
// configured size; the engine emits fixed-size crops so a mismatch
// means miswiring.
func (o *XWindowOutput) WriteFrame(frame *image.RGBA) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return fmt.Errorf("window output not running")
	}

	bounds := frame.Bounds()
	if bounds.Dx() != o.config.Width || bounds.Dy() != o.config.Height {
		return fmt.Errorf("frame size mismatch: got %dx%d, expected %dx%d",
			bounds.Dx(), bounds.Dy(), o.config.Width, o.config.Height)
	}

	data, err := o.toZPixmap(frame)
	if err != nil {
		return err
	}

	err = xproto.PutImageChecked(
		o.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(o.window),
		o.gc,
		uint16(o.config.Width),
		uint16(o.config.Height),
		0, 0,
		0,
		o.screen.RootDepth,
		data,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to put image: %w", err)
	}
	o.conn.Sync()
	return nil
}

// toZPixmap converts RGBA pixels into the server's ZPixmap layout,
// honoring the pixmap format's scanline padding.
func (o *XWindowOutput) toZPixmap(frame *image.RGBA) ([]byte, error) {
	depth := o.screen.RootDepth

	var bitsPerPixel, scanlinePad uint8
	for _, format := range xproto.Setup(o.conn).PixmapFormats {
		if format.Depth == depth {
			bitsPerPixel = format.BitsPerPixel
			scanlinePad = format.ScanlinePad
			break
		}
	}
	if bitsPerPixel == 0 {
		return nil, fmt.Errorf("no pixmap format for depth %d", depth)
	}

	bytesPerPixel := int(bitsPerPixel) / 8
	if bytesPerPixel != 3 && bytesPerPixel != 4 {
		return nil, fmt.Errorf("unsupported bits per pixel: %d", bitsPerPixel)
	}

	width, height := o.config.Width, o.config.Height
	unpadded := width * bytesPerPixel
	padBytes := int(scanlinePad) / 8
	stride := ((unpadded + padBytes - 1) / padBytes) * padBytes

	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		srcRow := frame.Pix[y*frame.Stride:]
		dstRow := data[y*stride:]
		for x := 0; x < width; x++ {
			src := srcRow[x*4:]
			dst := dstRow[x*bytesPerPixel:]
			// Byte order follows the X visual masks: B, G, R.
			dst[0] = src[2]
			dst[1] = src[1]
			dst[2] = src[0]
			if bytesPerPixel == 4 {
				if depth == 32 {
					dst[3] = src[3]
				} else {
					dst[3] = 0
				}
			}
		}
	}
	return data, nil
}

func (o *XWindowOutput) setTitle(title string) error {
	titleAtom, err := o.atom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := o.atom("UTF8_STRING")
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(
		o.conn,
		xproto.PropModeReplace,
		o.window,
		titleAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

func (o *XWindowOutput) setClass(instance, class string) error {
	classAtom, err := o.atom("WM_CLASS")
	if err != nil {
		return err
	}
	classStr := instance + "\x00" + class + "\x00"
	return xproto.ChangePropertyChecked(
		o.conn,
		xproto.PropModeReplace,
		o.window,
		classAtom,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

func (o *XWindowOutput) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(o.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
