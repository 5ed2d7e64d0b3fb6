// Package driver is the supervisor: a single cooperative loop that routes
// events between the focus watcher, the capture sessions, the viewer, and
// the operator shell.
package driver

import (
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/logger"
	"github.com/bryanchriswhite/wincast/internal/session"
	"github.com/bryanchriswhite/wincast/internal/shell"
	"github.com/bryanchriswhite/wincast/internal/viewer"
	"github.com/bryanchriswhite/wincast/internal/watcher"
)

// Params wires the supervisor to its collaborators. All communication is
// message passing; the supervisor shares no mutable memory with any of
// them except the session registry, which it owns exclusively.
type Params struct {
	ViewerCmds chan<- viewer.Command
	ViewerMsgs <-chan viewer.Message

	WatcherCmds   chan<- watcher.Command
	WatcherEvents <-chan watcher.Event

	ShellCmds chan<- shell.Command
	ShellMsgs <-chan shell.Message

	Registry *session.Registry

	// OnFocusChange, when set, is notified after each focus change (used
	// to feed the status API). Must not block.
	OnFocusChange func(win xproto.Window)
}

// Driver runs the supervision loop.
type Driver struct {
	p     Params
	focus atomic.Uint32
}

func New(p Params) *Driver {
	return &Driver{p: p}
}

// Focus returns the last window reported as foreground. Safe to call from
// other goroutines (the status API reads it).
func (d *Driver) Focus() xproto.Window {
	return xproto.Window(d.focus.Load())
}

// Run iterates the supervision loop until the viewer reports closure. Every
// inbound read is non-blocking; idle iterations back off for a millisecond
// instead of hard-spinning, which keeps worst-case frame latency well under
// one frame interval.
func (d *Driver) Run() {
	log := logger.WithComponent("driver")
	log.Info().Msg("supervisor started")

	for d.step() {
		time.Sleep(time.Millisecond)
	}

	log.Info().Msg("supervisor stopped")
}

// step performs one iteration: drain each collaborator once, then process
// session closures, then forward frames. Closures strictly precede frame
// forwarding so a frame from a session removed this iteration is never
// delivered.
func (d *Driver) step() bool {
	select {
	case msg := <-d.p.ViewerMsgs:
		if msg == viewer.Closed {
			d.quit()
			return false
		}
	default:
	}

	select {
	case ev := <-d.p.WatcherEvents:
		d.focus.Store(uint32(ev.Window))
		d.p.Registry.Ensure(ev.Window)
		if d.p.OnFocusChange != nil {
			d.p.OnFocusChange(ev.Window)
		}
	default:
	}

	select {
	case <-d.p.ShellMsgs:
		// No variants defined yet.
	default:
	}

	d.p.Registry.PollClosures()
	d.p.Registry.PollFrames(d.Focus(), d.forward)
	return true
}

// forward hands a frame to the viewer without blocking: if the viewer is
// still busy with earlier frames, this one is stale and dropped. Frames are
// never queued up beyond the viewer's own command buffer.
func (d *Driver) forward(f capture.Frame) {
	select {
	case d.p.ViewerCmds <- viewer.Update{Frame: f}:
	default:
	}
}

// quit shuts the collaborators down, fire-and-forget: one Quit each to the
// viewer, the focus watcher, and the shell. Capture workers are not
// signalled (their command type has no variants yet); they die with the
// process.
func (d *Driver) quit() {
	logger.WithComponent("driver").Info().Msg("viewer closed, shutting down")
	d.p.ViewerCmds <- viewer.Quit{}
	d.p.WatcherCmds <- watcher.CommandQuit
	d.p.ShellCmds <- shell.CommandQuit
}
