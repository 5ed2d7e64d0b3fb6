package capture

import (
	"errors"
	"fmt"
)

// ErrStrideMismatch reports a raw buffer whose row stride does not match the
// window width rounded up to the platform row-alignment unit. The padding
// removal below depends on that layout; a mismatch means the platform
// contract changed and must not be papered over.
var ErrStrideMismatch = errors.New("row stride does not match aligned width")

// Depad copies the visible pixels out of a row-padded platform buffer into a
// tightly packed buffer of exactly width*height*BytesPerPixel bytes.
//
// data holds height rows; each row is alignPx pixels wide (width rounded up
// to the platform alignment unit), the trailing pad pixels carrying
// garbage. The effective stride is derived from the buffer length rather
// than trusted from the caller.
func Depad(data []byte, width, height, alignPx int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if alignPx < 1 {
		alignPx = 1
	}

	stride := len(data) / height
	want := ceilTo(width, alignPx) * BytesPerPixel
	if stride != want || len(data)%height != 0 {
		return nil, fmt.Errorf("%w: stride %d, want %d (width %d, align %d, buffer %d bytes)",
			ErrStrideMismatch, stride, want, width, alignPx, len(data))
	}

	// The single per-frame allocation: pad columns are skipped, not copied.
	row := width * BytesPerPixel
	pix := make([]byte, 0, row*height)
	for i := 0; i < height; i++ {
		start := i * stride
		pix = append(pix, data[start:start+row]...)
	}
	return pix, nil
}

func ceilTo(x, n int) int {
	return (x + n - 1) / n * n
}
