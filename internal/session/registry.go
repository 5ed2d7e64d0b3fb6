// Package session tracks one live capture worker per window handle.
//
// The registry is owned exclusively by the supervisor goroutine; all state
// here is single-threaded and unlocked. Workers are reached only through
// their channels.
package session

import (
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/logger"
)

// StartFunc spawns a capture worker for win that writes into frames. It
// returns the worker's reserved command sender, its status source, and a
// join channel that closes once the worker goroutine has terminated.
type StartFunc func(win xproto.Window, frames chan<- capture.Frame) (chan<- capture.Command, <-chan capture.Status, <-chan struct{})

// Hooks are optional notifications fired on registry mutations, used to
// feed the status API. Nil funcs are skipped.
type Hooks struct {
	SessionOpened func(win xproto.Window)
	SessionClosed func(win xproto.Window)
}

// Session is the live state for one captured window. The registry treats
// it as an opaque bundle of channel ends; no memory is shared with the
// worker.
type Session struct {
	cmds   chan<- capture.Command // reserved, no variants yet
	status <-chan capture.Status
	frames <-chan capture.Frame
	done   <-chan struct{}
}

// Registry maps window handles to live capture sessions.
type Registry struct {
	start    StartFunc
	hooks    Hooks
	sessions map[xproto.Window]*Session
}

func NewRegistry(start StartFunc, hooks Hooks) *Registry {
	return &Registry{
		start:    start,
		hooks:    hooks,
		sessions: make(map[xproto.Window]*Session),
	}
}

// Ensure starts a capture session for win unless one already exists.
// Idempotent: at most one session per handle.
func (r *Registry) Ensure(win xproto.Window) {
	if _, ok := r.sessions[win]; ok {
		return
	}

	frames := make(chan capture.Frame, capture.FrameBacklog)
	cmds, status, done := r.start(win, frames)
	r.sessions[win] = &Session{
		cmds:   cmds,
		status: status,
		frames: frames,
		done:   done,
	}

	logger.WithComponent("session").Info().
		Uint32("window", uint32(win)).
		Int("sessions", len(r.sessions)).
		Msg("capture session started")

	if r.hooks.SessionOpened != nil {
		r.hooks.SessionOpened(win)
	}
}

// PollClosures drains at most one status message per session, then removes
// every session that reported closure. Each removed worker is joined before
// its slot is considered free. Scan and removal are separate phases so the
// map is never mutated while being iterated.
func (r *Registry) PollClosures() {
	log := logger.WithComponent("session")

	var closed []xproto.Window
	for win, s := range r.sessions {
		select {
		case st := <-s.status:
			switch st.Kind {
			case capture.StatusDiagnostic:
				log.Warn().
					Uint32("window", uint32(win)).
					Str("detail", st.Message).
					Msg("capture fault")
			case capture.StatusClosed:
				closed = append(closed, win)
			}
		default:
		}
	}

	for _, win := range closed {
		s, ok := r.sessions[win]
		if !ok {
			continue
		}
		delete(r.sessions, win)
		<-s.done

		log.Info().
			Uint32("window", uint32(win)).
			Int("sessions", len(r.sessions)).
			Msg("capture session closed")

		if r.hooks.SessionClosed != nil {
			r.hooks.SessionClosed(win)
		}
	}
}

// PollFrames drains at most one frame per session. Frames whose handle
// equals focus are handed to sink; everything else is dropped on the floor
// (at-most-once: an unfocused frame is never requeued). Returns the number
// of forwarded frames.
func (r *Registry) PollFrames(focus xproto.Window, sink func(capture.Frame)) int {
	forwarded := 0
	for _, s := range r.sessions {
		select {
		case f := <-s.frames:
			if f.Window == focus {
				sink(f)
				forwarded++
			}
		default:
		}
	}
	return forwarded
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Windows returns the handles of all live sessions in ascending order.
func (r *Registry) Windows() []xproto.Window {
	wins := make([]xproto.Window, 0, len(r.sessions))
	for win := range r.sessions {
		wins = append(wins, win)
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i] < wins[j] })
	return wins
}
