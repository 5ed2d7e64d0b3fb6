package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wincast/internal/logger"
)

// ErrWindowClosed is returned by Subscription.Next once the window is
// destroyed or capture access is lost. The worker reacts by emitting its
// final Closed status and terminating.
var ErrWindowClosed = errors.New("window closed")

// Source provides per-window subscriptions to the platform capture
// facility.
type Source interface {
	Subscribe(win xproto.Window) (Subscription, error)
}

// Subscription delivers raw platform buffers for one window.
type Subscription interface {
	// Next blocks until the next delivery. A delivery with nil Data is a
	// transient fault (pixel buffer unavailable for that tick). Next
	// returns ErrWindowClosed once the window is gone.
	Next() (RawBuffer, error)

	Close() error
}

// RawBuffer is the transient buffer handed over by the platform facility.
// Data holds Height rows whose stride is Width rounded up to AlignPx
// pixels; it is consumed and discarded immediately after conversion.
type RawBuffer struct {
	Width   int
	Height  int
	AlignPx int
	Data    []byte
}

// Start spawns the capture worker for win. The caller keeps the receiving
// end of frames; the returned channels are the reserved command sender, the
// status source, and a join handle that closes when the worker goroutine
// has fully terminated.
//
// Subscription setup happens inside the goroutine, so setup failure is not
// a synchronous error: it surfaces as a diagnostic status followed by
// Closed. Closed is always emitted, and always last, so a registry slot is
// never leaked.
func Start(src Source, win xproto.Window, fps int, frames chan<- Frame) (chan<- Command, <-chan Status, <-chan struct{}) {
	cmds := make(chan Command)
	status := make(chan Status, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		run(src, win, fps, frames, status)
	}()

	return cmds, status, done
}

func run(src Source, win xproto.Window, fps int, frames chan<- Frame, status chan<- Status) {
	log := logger.WithComponent("capture").With().Uint32("window", uint32(win)).Logger()

	sub, err := src.Subscribe(win)
	if err != nil {
		status <- Status{Kind: StatusDiagnostic, Window: win, Message: fmt.Sprintf("failed to subscribe: %v", err)}
		status <- Status{Kind: StatusClosed, Window: win}
		return
	}
	defer sub.Close()

	log.Debug().Int("fps", fps).Msg("capture worker started")

	p := newPacer(fps, time.Now())
	for {
		buf, err := sub.Next()
		if err != nil {
			if !errors.Is(err, ErrWindowClosed) {
				status <- Status{Kind: StatusDiagnostic, Window: win, Message: fmt.Sprintf("delivery failed: %v", err)}
			}
			status <- Status{Kind: StatusClosed, Window: win}
			return
		}

		// Rate limit: deliveries ahead of schedule are discarded before
		// any conversion work.
		if !p.due(time.Now()) {
			continue
		}

		if buf.Data == nil {
			status <- Status{Kind: StatusDiagnostic, Window: win, Message: "frame buffer unavailable"}
			continue
		}

		pix, err := Depad(buf.Data, buf.Width, buf.Height, buf.AlignPx)
		if err != nil {
			// The platform buffer layout no longer matches the contract
			// this conversion depends on. Corrupt frames must never reach
			// the viewer, so this aborts instead of degrading.
			panic(fmt.Sprintf("capture: window %d: %v", win, err))
		}

		// Blocking send: a slow consumer throttles the producer here
		// instead of growing memory.
		frames <- Frame{Window: win, Width: buf.Width, Height: buf.Height, Pix: pix}

		p.advance(time.Now())
	}
}
