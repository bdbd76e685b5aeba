package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// MaxWidth is the widest image the binarizer traces at full resolution.
	// Wider images are downscaled proportionally first.
	MaxWidth = 2000

	// BorderWidth is the padding added on each side when AddBorder is set.
	BorderWidth = 10
)

// Mask sample values.
const (
	Background uint8 = 0
	Foreground uint8 = 1
)

// ThinStrategy selects how single-line mode reduces line thickness.
type ThinStrategy int

const (
	// ThinMorph dilates with a 3x3 cross and then opens with the same element,
	// closing small gaps between strokes and smoothing joins.
	ThinMorph ThinStrategy = iota

	// ThinSkeleton reduces every connected region to a 1-pixel-wide skeleton.
	ThinSkeleton
)

// String returns the configuration name of the strategy.
func (s ThinStrategy) String() string {
	switch s {
	case ThinMorph:
		return "morph"
	case ThinSkeleton:
		return "skeleton"
	}
	return fmt.Sprintf("ThinStrategy(%d)", int(s))
}

// ParseThinStrategy parses "morph" or "skeleton". The empty string selects ThinMorph.
func ParseThinStrategy(s string) (ThinStrategy, error) {
	switch s {
	case "", "morph":
		return ThinMorph, nil
	case "skeleton":
		return ThinSkeleton, nil
	}
	return ThinMorph, fmt.Errorf("unknown thinning strategy %q (want morph or skeleton)", s)
}

// Mask is a binary image. Every sample is Background or Foreground.
//
// Pix holds Width*Height samples in row-major order. A Mask is owned by the stage
// that produced it; stages return new masks instead of editing their input.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the sample at (x, y). Coordinates outside the mask read as Background.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Background
	}
	return m.Pix[y*m.Width+x]
}

// Set stores v at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Count returns the number of foreground samples.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v == Foreground {
			n++
		}
	}
	return n
}

// Gray renders the mask as an 8-bit image: foreground 255, background 0.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v == Foreground {
			g.Pix[i] = 255
		}
	}
	return g
}

// BinarizeOptions controls Binarize. It is a plain value; callers build one per request.
type BinarizeOptions struct {
	// Threshold is the gray level separating the two classes (0-255).
	Threshold int

	// Invert swaps the classes: pixels at or below Threshold become foreground.
	Invert bool

	// AddBorder pads the mask with BorderWidth background pixels on every side.
	AddBorder bool

	// Thin enables single-line mode using ThinStrategy.
	Thin         bool
	ThinStrategy ThinStrategy

	// MaxWidth overrides the downscale bound. Zero means MaxWidth.
	MaxWidth int
}

// Binarize turns a decoded image into a binary mask.
//
// Steps, in order:
//
//  1. Downscale: images wider than the width bound are resized to it with an
//     area-averaging box filter. The height is scaled by the same ratio and rounded down.
//  2. Grayscale: ITU-R BT.601 luminance (0.299 R + 0.587 G + 0.114 B).
//  3. Threshold: foreground iff gray > Threshold, or gray <= Threshold when inverted.
//     A pixel exactly at the threshold is background unless Invert is set.
//  4. Border: optional BorderWidth background padding, growing each axis by 2*BorderWidth.
//  5. Thinning: optional, see ThinStrategy.
func Binarize(img image.Image, opts BinarizeOptions) *Mask {
	gray := Grayscale(DownscaleTo(img, opts.MaxWidth))

	mask := Threshold(gray, opts.Threshold, opts.Invert)

	if opts.AddBorder {
		mask = PadBorder(mask, BorderWidth)
	}

	if opts.Thin {
		switch opts.ThinStrategy {
		case ThinSkeleton:
			mask = Skeletonize(mask)
		default:
			cross := CrossElement()
			mask = Open(Dilate(mask, cross), cross)
		}
	}

	return mask
}

// DownscaleTo returns img unchanged when it is at most maxWidth wide, otherwise a
// box-filtered copy maxWidth pixels wide. A maxWidth of zero or less means MaxWidth.
func DownscaleTo(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 {
		maxWidth = MaxWidth
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		return img
	}
	newH := int(float64(h) * (float64(maxWidth) / float64(w)))
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, maxWidth, newH, imaging.Box)
}

// Grayscale converts any image to an 8-bit luminance image with origin (0, 0).
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		out := image.NewGray(g.Rect)
		copy(out.Pix, g.Pix)
		return out
	}

	// imaging.Grayscale applies BT.601 weights and returns an NRGBA image with
	// equal channels and bounds starting at (0, 0).
	src := imaging.Grayscale(img)
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

// Threshold classifies every gray sample against threshold.
func Threshold(gray *image.Gray, threshold int, invert bool) *Mask {
	b := gray.Bounds()
	mask := NewMask(b.Dx(), b.Dy())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			v := int(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			fg := v > threshold
			if invert {
				fg = !fg
			}
			if fg {
				mask.Pix[y*mask.Width+x] = Foreground
			}
		}
	}
	return mask
}

// PadBorder returns a copy of m surrounded by width background pixels on every side.
func PadBorder(m *Mask, width int) *Mask {
	out := NewMask(m.Width+2*width, m.Height+2*width)
	for y := 0; y < m.Height; y++ {
		copy(out.Pix[(y+width)*out.Width+width:], m.Pix[y*m.Width:(y+1)*m.Width])
	}
	return out
}
