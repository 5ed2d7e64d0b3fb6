package capture

import "github.com/BurntSushi/xgb/xproto"

const (
	// BytesPerPixel is the canonical pixel size. Byte order is passed
	// through from the platform facility unchanged (BGRx on X11).
	BytesPerPixel = 4

	// FrameBacklog is the bounded capacity of a session's frame channel.
	// A full channel blocks the producer rather than growing memory.
	FrameBacklog = 5

	// DefaultFPS is the target emission rate shared by all sessions.
	DefaultFPS = 60
)

// Frame is the canonical, padding-free pixel buffer for one delivery.
// Pix holds exactly Width*Height*BytesPerPixel bytes, row-major, with no
// inter-row padding.
type Frame struct {
	Window xproto.Window
	Width  int
	Height int
	Pix    []byte
}
