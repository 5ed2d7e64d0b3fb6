// Package viewer renders captured frames into an X11 window and reports
// when the operator dismisses it.
package viewer

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/logger"
)

// Command is the viewer's inbound control type.
type Command interface {
	isViewerCommand()
}

// Update replaces the displayed frame.
type Update struct {
	Frame capture.Frame
}

// Quit tears the viewer down.
type Quit struct{}

func (Update) isViewerCommand() {}
func (Quit) isViewerCommand()   {}

// Message is the viewer's outbound status type.
type Message int

const (
	// Closed reports that the viewer window was dismissed.
	Closed Message = iota
)

// Viewer owns one X11 window and a command-driven render loop.
type Viewer struct {
	conn    *xgb.Conn
	screen  *xproto.ScreenInfo
	win     xproto.Window
	gc      xproto.Gcontext
	width   int
	height  int
	alignPx int

	cmds chan Command
	msgs chan Message

	wmDelete xproto.Atom
	closed   bool
	alive    bool
}

// New creates and maps the viewer window.
func New(width, height int) (*Viewer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	v := &Viewer{
		conn:    conn,
		screen:  screen,
		width:   width,
		height:  height,
		alignPx: 1,
		cmds:    make(chan Command, capture.FrameBacklog),
		msgs:    make(chan Message, 1),
	}

	for _, format := range setup.PixmapFormats {
		if format.Depth == screen.RootDepth && format.BitsPerPixel >= 8 {
			v.alignPx = int(format.ScanlinePad) / int(format.BitsPerPixel)
			break
		}
	}
	if v.alignPx < 1 {
		v.alignPx = 1
	}

	if err := v.createWindow(); err != nil {
		conn.Close()
		return nil, err
	}
	v.alive = true

	return v, nil
}

func (v *Viewer) createWindow() error {
	win, err := xproto.NewWindowId(v.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window ID: %w", err)
	}
	v.win = win

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}

	if err := xproto.CreateWindowChecked(
		v.conn,
		v.screen.RootDepth,
		v.win,
		v.screen.Root,
		0, 0,
		uint16(v.width), uint16(v.height),
		0,
		xproto.WindowClassInputOutput,
		v.screen.RootVisual,
		mask,
		values,
	).Check(); err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	log := logger.WithComponent("viewer")

	if err := v.setTitle("wincast"); err != nil {
		log.Warn().Err(err).Msg("failed to set window title")
	}
	if err := v.setClass("wincast", "Wincast"); err != nil {
		log.Warn().Err(err).Msg("failed to set window class")
	}

	// Opt in to WM_DELETE_WINDOW so dismissal arrives as a ClientMessage
	// instead of the server killing the connection.
	protocols, err1 := v.atom("WM_PROTOCOLS")
	wmDelete, err2 := v.atom("WM_DELETE_WINDOW")
	if err1 == nil && err2 == nil {
		v.wmDelete = wmDelete
		data := []byte{
			byte(wmDelete), byte(wmDelete >> 8), byte(wmDelete >> 16), byte(wmDelete >> 24),
		}
		if err := xproto.ChangePropertyChecked(
			v.conn, xproto.PropModeReplace, v.win,
			protocols, xproto.AtomAtom, 32, 1, data,
		).Check(); err != nil {
			log.Warn().Err(err).Msg("failed to register WM_DELETE_WINDOW")
		}
	}

	if err := xproto.MapWindowChecked(v.conn, v.win).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}
	v.conn.Sync()

	gc, err := xproto.NewGcontextId(v.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate GC ID: %w", err)
	}
	v.gc = gc
	if err := xproto.CreateGCChecked(
		v.conn, v.gc, xproto.Drawable(v.win), 0, nil,
	).Check(); err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}

	log.Info().
		Int("width", v.width).
		Int("height", v.height).
		Uint32("window", uint32(v.win)).
		Msg("viewer window created")
	return nil
}

// Commands is the viewer's inbound command sink.
func (v *Viewer) Commands() chan<- Command {
	return v.cmds
}

// Messages is the viewer's outbound status source.
func (v *Viewer) Messages() <-chan Message {
	return v.msgs
}

// RequestClose makes the viewer report Closed as if the window had been
// dismissed. Used for signal-driven shutdown.
func (v *Viewer) RequestClose() {
	select {
	case v.msgs <- Closed:
	default:
	}
}

// Run services commands and window events until Quit arrives.
func (v *Viewer) Run() {
	log := logger.WithComponent("viewer")

	for {
		select {
		case cmd := <-v.cmds:
			switch c := cmd.(type) {
			case Update:
				if v.alive {
					if err := v.render(c.Frame); err != nil {
						log.Debug().Err(err).Msg("render failed")
					}
				}
			case Quit:
				v.destroy()
				log.Info().Msg("viewer stopped")
				return
			}
			continue
		default:
		}

		ev, err := v.conn.PollForEvent()
		if err != nil {
			log.Debug().Err(err).Msg("X event error")
		}
		if ev == nil {
			time.Sleep(2 * time.Millisecond)
			continue
		}

		switch e := ev.(type) {
		case xproto.ClientMessageEvent:
			if v.wmDelete != 0 && len(e.Data.Data32) > 0 && xproto.Atom(e.Data.Data32[0]) == v.wmDelete {
				v.reportClosed()
			}
		case xproto.DestroyNotifyEvent:
			if e.Window == v.win {
				v.alive = false
				v.reportClosed()
			}
		case xproto.ConfigureNotifyEvent:
			if e.Window == v.win {
				v.width = int(e.Width)
				v.height = int(e.Height)
			}
		}
	}
}

func (v *Viewer) reportClosed() {
	if v.closed {
		return
	}
	v.closed = true
	logger.WithComponent("viewer").Info().Msg("viewer window dismissed")
	select {
	case v.msgs <- Closed:
	default:
	}
}

func (v *Viewer) destroy() {
	if v.alive {
		xproto.FreeGC(v.conn, v.gc)
		xproto.DestroyWindow(v.conn, v.win)
		v.conn.Sync()
		v.alive = false
	}
	v.conn.Close()
}

func (v *Viewer) setTitle(title string) error {
	nameAtom, err := v.atom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := v.atom("UTF8_STRING")
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(
		v.conn, xproto.PropModeReplace, v.win,
		nameAtom, utf8Atom, 8, uint32(len(title)), []byte(title),
	).Check()
}

func (v *Viewer) setClass(instance, class string) error {
	classAtom, err := v.atom("WM_CLASS")
	if err != nil {
		return err
	}
	value := instance + "\x00" + class + "\x00"
	return xproto.ChangePropertyChecked(
		v.conn, xproto.PropModeReplace, v.win,
		classAtom, xproto.AtomString, 8, uint32(len(value)), []byte(value),
	).Check()
}

func (v *Viewer) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(v.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
