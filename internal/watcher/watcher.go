// Package watcher follows the X server's notion of the currently focused
// top-level window and reports changes as events.
package watcher

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/logger"
)

// Command is the watcher's inbound control type.
type Command int

const (
	// CommandQuit stops the watch loop.
	CommandQuit Command = iota
)

// Event reports that the foreground window changed.
type Event struct {
	Window xproto.Window
}

// Watcher polls X11 input focus on its own connection.
type Watcher struct {
	conn     *xgb.Conn
	root     xproto.Window
	interval time.Duration
	events   chan Event
	cmds     chan Command
}

// New connects to the X server. interval is the focus polling period.
func New(interval time.Duration) (*Watcher, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	return &Watcher{
		conn:     conn,
		root:     root,
		interval: interval,
		events:   make(chan Event, 10),
		cmds:     make(chan Command, 1),
	}, nil
}

// Events is the watcher's outbound event source.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Commands is the watcher's inbound command sink.
func (w *Watcher) Commands() chan<- Command {
	return w.cmds
}

// Run polls for focus changes until CommandQuit arrives. An event is
// emitted only when the resolved top-level window differs from the last
// one reported; the send is non-blocking so a stalled consumer cannot
// stall the watcher.
func (w *Watcher) Run() {
	log := logger.WithComponent("watcher")
	log.Info().Dur("interval", w.interval).Msg("focus watcher started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var last xproto.Window
	for {
		select {
		case cmd := <-w.cmds:
			if cmd == CommandQuit {
				log.Info().Msg("focus watcher stopped")
				w.conn.Close()
				return
			}
		case <-ticker.C:
			win, err := w.focusedToplevel()
			if err != nil {
				log.Debug().Err(err).Msg("failed to resolve focused window")
				continue
			}
			if win == 0 || win == last {
				continue
			}
			last = win
			log.Debug().Uint32("window", uint32(win)).Msg("focus changed")
			select {
			case w.events <- Event{Window: win}:
			default:
			}
		}
	}
}

// focusedToplevel resolves the input focus to its top-level ancestor: the
// focus may sit on a child widget, but capture and routing key on the
// top-level window handle.
func (w *Watcher) focusedToplevel() (xproto.Window, error) {
	reply, err := xproto.GetInputFocus(w.conn).Reply()
	if err != nil {
		return 0, err
	}

	win := reply.Focus
	if win == xproto.Window(xproto.InputFocusPointerRoot) || win == xproto.Window(xproto.InputFocusNone) || win == w.root {
		return 0, nil
	}

	for depth := 0; depth < 32; depth++ {
		tree, err := xproto.QueryTree(w.conn, win).Reply()
		if err != nil {
			return 0, err
		}
		if tree.Parent == w.root || tree.Parent == 0 {
			return win, nil
		}
		win = tree.Parent
	}
	return 0, fmt.Errorf("window tree deeper than expected")
}
