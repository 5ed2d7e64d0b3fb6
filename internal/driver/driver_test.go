package driver

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/session"
	"github.com/bryanchriswhite/wincast/internal/shell"
	"github.com/bryanchriswhite/wincast/internal/viewer"
	"github.com/bryanchriswhite/wincast/internal/watcher"
)

type harness struct {
	driver *Driver

	viewerCmds    chan viewer.Command
	viewerMsgs    chan viewer.Message
	watcherCmds   chan watcher.Command
	watcherEvents chan watcher.Event
	shellCmds     chan shell.Command
	shellMsgs     chan shell.Message

	frames map[xproto.Window]chan<- capture.Frame
}

// newHarness builds a driver over a real registry whose workers are test
// stubs: emitting on h.frames[win] simulates a capture delivery.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		viewerCmds:    make(chan viewer.Command, 16),
		viewerMsgs:    make(chan viewer.Message, 1),
		watcherCmds:   make(chan watcher.Command, 1),
		watcherEvents: make(chan watcher.Event, 10),
		shellCmds:     make(chan shell.Command, 1),
		shellMsgs:     make(chan shell.Message, 1),
		frames:        make(map[xproto.Window]chan<- capture.Frame),
	}

	start := func(win xproto.Window, frames chan<- capture.Frame) (chan<- capture.Command, <-chan capture.Status, <-chan struct{}) {
		h.frames[win] = frames
		done := make(chan struct{})
		close(done) // stub workers are "already terminated" for join purposes
		return make(chan capture.Command), make(chan capture.Status, 1), done
	}

	h.driver = New(Params{
		ViewerCmds:    h.viewerCmds,
		ViewerMsgs:    h.viewerMsgs,
		WatcherCmds:   h.watcherCmds,
		WatcherEvents: h.watcherEvents,
		ShellCmds:     h.shellCmds,
		ShellMsgs:     h.shellMsgs,
		Registry:      session.NewRegistry(start, session.Hooks{}),
	})
	return h
}

func (h *harness) emitFrame(win xproto.Window) {
	h.frames[win] <- capture.Frame{
		Window: win,
		Width:  2,
		Height: 2,
		Pix:    make([]byte, 2*2*capture.BytesPerPixel),
	}
}

func TestStep_FocusChangeStartsSessionsOnce(t *testing.T) {
	h := newHarness(t)

	h.watcherEvents <- watcher.Event{Window: 0xA}
	if !h.driver.step() {
		t.Fatal("step reported shutdown")
	}
	h.watcherEvents <- watcher.Event{Window: 0xB}
	h.driver.step()
	h.watcherEvents <- watcher.Event{Window: 0xA}
	h.driver.step()

	if got := h.driver.p.Registry.Len(); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}
	if h.driver.Focus() != 0xA {
		t.Fatalf("focus = %#x, want 0xA", h.driver.Focus())
	}
}

func TestStep_ForwardsOnlyFocusedFrames(t *testing.T) {
	h := newHarness(t)

	h.watcherEvents <- watcher.Event{Window: 0xA}
	h.driver.step()
	h.watcherEvents <- watcher.Event{Window: 0xB}
	h.driver.step()

	// Both sessions produce; only the focused window (B) may reach the
	// viewer.
	h.emitFrame(0xA)
	h.emitFrame(0xB)
	h.driver.step()

	select {
	case cmd := <-h.viewerCmds:
		up, ok := cmd.(viewer.Update)
		if !ok {
			t.Fatalf("unexpected viewer command %T", cmd)
		}
		if up.Frame.Window != 0xB {
			t.Fatalf("forwarded frame for %#x, want 0xB", up.Frame.Window)
		}
	default:
		t.Fatal("no frame forwarded to viewer")
	}
	select {
	case cmd := <-h.viewerCmds:
		t.Fatalf("unexpected extra viewer command: %#v", cmd)
	default:
	}

	// The A frame was drained and dropped; refocusing A later must not
	// resurrect it.
	h.watcherEvents <- watcher.Event{Window: 0xA}
	h.driver.step()
	select {
	case cmd := <-h.viewerCmds:
		t.Fatalf("stale frame delivered after refocus: %#v", cmd)
	default:
	}
}

func TestStep_ViewerClosedQuitsCollaboratorsOnce(t *testing.T) {
	h := newHarness(t)

	h.viewerMsgs <- viewer.Closed
	if h.driver.step() {
		t.Fatal("step should report shutdown after viewer closes")
	}

	cmd := <-h.viewerCmds
	if _, ok := cmd.(viewer.Quit); !ok {
		t.Fatalf("viewer received %#v, want Quit", cmd)
	}
	if cmd := <-h.watcherCmds; cmd != watcher.CommandQuit {
		t.Fatalf("watcher received %v, want CommandQuit", cmd)
	}
	if cmd := <-h.shellCmds; cmd != shell.CommandQuit {
		t.Fatalf("shell received %v, want CommandQuit", cmd)
	}

	// Exactly once each.
	if len(h.viewerCmds) != 0 || len(h.watcherCmds) != 0 || len(h.shellCmds) != 0 {
		t.Fatal("quit commands sent more than once")
	}
}

func TestStep_ShellMessagesAreDrained(t *testing.T) {
	h := newHarness(t)

	// The shell message type has no variants; a nil interface value stands
	// in for "a message arrived" and must simply be consumed.
	h.shellMsgs <- nil
	h.driver.step()

	if len(h.shellMsgs) != 0 {
		t.Fatal("shell message was not drained")
	}
}
