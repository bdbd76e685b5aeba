package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePNGBase64 encodes img as PNG and returns the standard base64 text of it.
func EncodePNGBase64(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// OutputExtension normalizes a requested output format to the file extension that
// will actually be written. Unknown formats and WebP (no pure-Go encoder) fall back
// to "png".
//
//	"jpg", "jpeg" -> "jpg"
//	"tif", "tiff" -> "tiff"
//	"png", "bmp", "gif" -> unchanged
func OutputExtension(format string) string {
	switch f := strings.ToLower(strings.TrimPrefix(format, ".")); f {
	case "jpg", "jpeg":
		return "jpg"
	case "tif", "tiff":
		return "tiff"
	case "png", "bmp", "gif":
		return f
	}
	return "png"
}

// EncodeImage writes img to w in the given output format (see OutputExtension).
func EncodeImage(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(OutputExtension(format))
	if err != nil {
		return fmt.Errorf("unsupported output format %q: %w", format, err)
	}
	if err := imaging.Encode(w, img, f, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to encode %s image: %w", f, err)
	}
	return nil
}

// EncodeImageBytes is EncodeImage into a byte slice.
func EncodeImageBytes(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
