package capture

import (
	"bytes"
	"errors"
	"testing"
)

// paddedBuffer builds a raw buffer of height rows whose stride is width
// rounded up to alignPx, filling visible pixels with fill and pad columns
// with pad.
func paddedBuffer(width, height, alignPx int, fill, pad byte) []byte {
	stride := ceilTo(width, alignPx) * BytesPerPixel
	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		row := data[y*stride : (y+1)*stride]
		for x := 0; x < len(row); x++ {
			if x < width*BytesPerPixel {
				row[x] = fill
			} else {
				row[x] = pad
			}
		}
	}
	return data
}

func TestDepad_RemovesPadColumns(t *testing.T) {
	// 130px rows padded to the next multiple of 64 (192px stride).
	data := paddedBuffer(130, 10, 64, 0xAA, 0xFF)

	pix, err := Depad(data, 130, 10, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := 130 * 10 * BytesPerPixel; len(pix) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(pix))
	}
	if bytes.IndexByte(pix, 0xFF) != -1 {
		t.Fatalf("pad byte leaked into output")
	}
	for i, b := range pix {
		if b != 0xAA {
			t.Fatalf("pix[%d] = %#x, want 0xAA", i, b)
		}
	}
}

func TestDepad_OutputLengthIsAlwaysTight(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		alignPx        int
	}{
		{"no padding needed", 64, 4, 64},
		{"one pixel row", 1, 1, 64},
		{"align unit one", 33, 7, 1},
		{"odd width small align", 5, 3, 4},
		{"tall narrow", 2, 128, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := paddedBuffer(tt.width, tt.height, tt.alignPx, 0x10, 0x20)
			pix, err := Depad(data, tt.width, tt.height, tt.alignPx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := tt.width * tt.height * BytesPerPixel; len(pix) != want {
				t.Fatalf("expected %d bytes, got %d", want, len(pix))
			}
			if bytes.IndexByte(pix, 0x20) != -1 {
				t.Fatalf("pad byte leaked into output")
			}
		})
	}
}

func TestDepad_StrideMismatch(t *testing.T) {
	// Buffer sized as if rows were padded to 32 pixels, claimed align 64.
	data := paddedBuffer(130, 10, 32, 0xAA, 0xFF)

	_, err := Depad(data, 130, 10, 64)
	if !errors.Is(err, ErrStrideMismatch) {
		t.Fatalf("expected ErrStrideMismatch, got %v", err)
	}
}

func TestDepad_InvalidDimensions(t *testing.T) {
	if _, err := Depad(nil, 0, 10, 64); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := Depad(nil, 10, 0, 64); err == nil {
		t.Fatal("expected error for zero height")
	}
}
