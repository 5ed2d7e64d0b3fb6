package capture

import "github.com/BurntSushi/xgb/xproto"

// Command is the inbound control type for a capture worker. It is a
// reserved extension point: no variants exist yet, the channel only pins
// the interface shape for future per-session control (pause, cancel).
type Command interface {
	isCommand()
}

// StatusKind tags a worker status message.
type StatusKind int

const (
	// StatusDiagnostic reports a non-fatal capture fault; the session
	// keeps running.
	StatusDiagnostic StatusKind = iota

	// StatusClosed reports that the window is gone (destroyed, access
	// lost, or subscription never attached). It is always the final
	// message a worker emits.
	StatusClosed
)

// Status is a worker's outbound status message.
type Status struct {
	Kind    StatusKind
	Window  xproto.Window
	Message string
}
