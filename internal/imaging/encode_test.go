package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func TestOutputExtension(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"png", "png"},
		{".PNG", "png"},
		{"jpg", "jpg"},
		{"JPEG", "jpg"},
		{"tif", "tiff"},
		{"tiff", "tiff"},
		{"bmp", "bmp"},
		{"gif", "gif"},
		{"webp", "png"},
		{"", "png"},
		{"svg", "png"},
	}
	for _, tt := range tests {
		if got := OutputExtension(tt.in); got != tt.want {
			t.Errorf("OutputExtension(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeImageBytes_Formats(t *testing.T) {
	img := createInMemoryImage(12, 8, color.RGBA{200, 10, 10, 255})

	for _, format := range []string{"png", "jpg", "bmp", "tiff", "gif", "webp"} {
		t.Run(format, func(t *testing.T) {
			data, err := EncodeImageBytes(img, format)
			if err != nil {
				t.Fatalf("EncodeImageBytes(%s) failed: %v", format, err)
			}
			back, err := imaging.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not decodable: %v", err)
			}
			if back.Bounds().Dx() != 12 || back.Bounds().Dy() != 8 {
				t.Errorf("dimensions: got %v, want 12x8", back.Bounds())
			}
		})
	}
}

func TestEncodePNGBase64(t *testing.T) {
	m := NewMask(3, 3)
	m.Set(1, 1, Foreground)

	s, err := EncodePNGBase64(m.Gray())
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	r, _, _, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 {
		t.Errorf("foreground pixel: got %d, want 255", r>>8)
	}
}
