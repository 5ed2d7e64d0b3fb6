package viewer

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	xdraw "golang.org/x/image/draw"

	"github.com/bryanchriswhite/wincast/internal/capture"
)

// render scales the frame to fit the window (preserving aspect ratio,
// letterboxed on black) and puts it on screen. Channel order is never
// touched: the frame bytes are already in the server's native layout.
func (v *Viewer) render(frame capture.Frame) error {
	if frame.Width <= 0 || frame.Height <= 0 || v.width <= 0 || v.height <= 0 {
		return fmt.Errorf("degenerate frame or window geometry")
	}

	src := &image.RGBA{
		Pix:    frame.Pix,
		Stride: frame.Width * capture.BytesPerPixel,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	scaleX := float64(v.width) / float64(frame.Width)
	scaleY := float64(v.height) / float64(frame.Height)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	dstW := int(float64(frame.Width) * scale)
	dstH := int(float64(frame.Height) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	offX := (v.width - dstW) / 2
	offY := (v.height - dstH) / 2

	// Zeroed pixels are the black letterbox.
	dst := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	dstRect := image.Rect(offX, offY, offX+dstW, offY+dstH)
	xdraw.ApproxBiLinear.Scale(dst, dstRect, src, src.Bounds(), xdraw.Src, nil)

	return v.putImage(dst.Pix, v.width, v.height)
}

// putImage uploads pix (width*height*4 native-order bytes) to the viewer
// window, repadding rows to the server's scanline unit and splitting the
// upload into bands that stay under the protocol request limit.
func (v *Viewer) putImage(pix []byte, width, height int) error {
	row := width * capture.BytesPerPixel
	stride := ((row + v.alignPx*capture.BytesPerPixel - 1) /
		(v.alignPx * capture.BytesPerPixel)) * (v.alignPx * capture.BytesPerPixel)

	data := pix
	if stride != row {
		data = make([]byte, stride*height)
		for y := 0; y < height; y++ {
			copy(data[y*stride:], pix[y*row:(y+1)*row])
		}
	}

	// Keep each PutImage under the core protocol's request ceiling.
	const maxBytes = 1 << 18
	rowsPerBand := maxBytes / stride
	if rowsPerBand < 1 {
		rowsPerBand = 1
	}

	for y := 0; y < height; y += rowsPerBand {
		rows := rowsPerBand
		if y+rows > height {
			rows = height - y
		}
		if err := xproto.PutImageChecked(
			v.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(v.win),
			v.gc,
			uint16(width),
			uint16(rows),
			0, int16(y),
			0,
			v.screen.RootDepth,
			data[y*stride:(y+rows)*stride],
		).Check(); err != nil {
			return fmt.Errorf("failed to put image band at row %d: %w", y, err)
		}
	}

	v.conn.Sync()
	return nil
}
