package capture

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/logger"
)

// X11Source subscribes to window contents over X11/XWayland. One connection
// is shared by every subscription; xgb serializes requests internally.
type X11Source struct {
	conn      *xgb.Conn
	screen    *xproto.ScreenInfo
	composite bool
	alignPx   int
	interval  time.Duration
}

// NewX11Source connects to the X server. Deliveries are paced at twice the
// target fps so the worker's own throttle stays the limiting factor.
func NewX11Source(fps int) (*X11Source, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if fps <= 0 {
		fps = DefaultFPS
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	s := &X11Source{
		conn:     conn,
		screen:   screen,
		alignPx:  1,
		interval: time.Second / time.Duration(fps*2),
	}

	// The server pads each scanline to the format's pad unit; expressed in
	// pixels this is the alignment the depad step validates against.
	for _, format := range setup.PixmapFormats {
		if format.Depth == screen.RootDepth && format.BitsPerPixel >= 8 {
			s.alignPx = int(format.ScanlinePad) / int(format.BitsPerPixel)
			break
		}
	}
	if s.alignPx < 1 {
		s.alignPx = 1
	}

	log := logger.WithComponent("x11-source")
	if err := composite.Init(conn); err != nil {
		log.Warn().Err(err).Msg("Composite extension not available - obscured windows may capture stale or empty content")
	} else {
		s.composite = true
		log.Info().Msg("Composite extension initialized")
	}

	return s, nil
}

// Close shuts the shared connection down. Live subscriptions observe this
// as window closure on their next delivery.
func (s *X11Source) Close() error {
	s.conn.Close()
	return nil
}

// Subscribe validates the window and redirects it to an off-screen pixmap
// when the Composite extension is available.
func (s *X11Source) Subscribe(win xproto.Window) (Subscription, error) {
	attrs, err := xproto.GetWindowAttributes(s.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("window %d not capturable: %w", win, err)
	}
	if attrs.Class != xproto.WindowClassInputOutput {
		return nil, fmt.Errorf("window %d is not an input/output window", win)
	}

	sub := &x11Subscription{src: s, win: win}

	if s.composite {
		if err := composite.RedirectWindowChecked(s.conn, win, composite.RedirectAutomatic).Check(); err != nil {
			logger.WithComponent("x11-source").Debug().
				Err(err).
				Uint32("window", uint32(win)).
				Msg("Composite redirect failed, capturing the window drawable directly")
		} else {
			sub.redirected = true
		}
	}

	return sub, nil
}

type x11Subscription struct {
	src        *X11Source
	win        xproto.Window
	redirected bool
}

// Next paces one delivery and fetches the window image. Geometry errors
// mean the window is gone; image fetch errors are transient (the window may
// be mid-resize or unmapped for a tick) and surface as a nil-Data delivery.
func (s *x11Subscription) Next() (RawBuffer, error) {
	time.Sleep(s.src.interval)

	geom, err := xproto.GetGeometry(s.src.conn, xproto.Drawable(s.win)).Reply()
	if err != nil {
		return RawBuffer{}, fmt.Errorf("%w: %v", ErrWindowClosed, err)
	}

	buf := RawBuffer{
		Width:   int(geom.Width),
		Height:  int(geom.Height),
		AlignPx: s.src.alignPx,
	}

	drawable := xproto.Drawable(s.win)
	var pixmap xproto.Pixmap
	if s.redirected {
		// Name a fresh pixmap per delivery; the previous one goes stale on
		// resize.
		if id, err := xproto.NewPixmapId(s.src.conn); err == nil {
			if composite.NameWindowPixmapChecked(s.src.conn, s.win, id).Check() == nil {
				pixmap = id
				drawable = xproto.Drawable(id)
			}
		}
	}
	if pixmap != 0 {
		defer xproto.FreePixmap(s.src.conn, pixmap)
	}

	reply, err := xproto.GetImage(
		s.src.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return buf, nil
	}

	buf.Data = reply.Data
	return buf, nil
}

func (s *x11Subscription) Close() error {
	if s.redirected {
		composite.UnredirectWindow(s.src.conn, s.win, composite.RedirectAutomatic)
	}
	return nil
}
