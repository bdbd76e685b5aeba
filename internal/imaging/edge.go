package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Algorithm identifies one of the supported edge-detection filters.
type Algorithm int

const (
	Canny Algorithm = iota
	Sobel
	Prewitt
	Laplacian
)

// Algorithms lists every supported algorithm in menu order.
func Algorithms() []Algorithm {
	return []Algorithm{Canny, Sobel, Prewitt, Laplacian}
}

// String returns the display name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Canny:
		return "Canny"
	case Sobel:
		return "Sobel"
	case Prewitt:
		return "Prewitt"
	case Laplacian:
		return "Laplacian"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm matches an algorithm name case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms() {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return Canny, fmt.Errorf("unknown edge algorithm %q (want canny, sobel, prewitt or laplacian)", s)
}

// EdgeParams holds the numeric parameters of every edge filter. Each request or
// batch run builds its own value; filters only read it.
type EdgeParams struct {
	// BlurKernel is the Gaussian pre-blur size (odd, 1-31). 1 disables blurring.
	BlurKernel int `json:"blur_kernel" yaml:"blur_kernel"`

	// CannyLow and CannyHigh are the hysteresis thresholds (0-255).
	CannyLow  int `json:"canny_low" yaml:"canny_low"`
	CannyHigh int `json:"canny_high" yaml:"canny_high"`

	// SobelKSize is the Sobel aperture (1, 3, 5 or 7).
	SobelKSize int `json:"sobel_ksize" yaml:"sobel_ksize"`

	// LaplacianKSize is the Laplacian aperture (1, 3, 5 or 7).
	LaplacianKSize int `json:"laplacian_ksize" yaml:"laplacian_ksize"`
}

// DefaultEdgeParams returns the parameters used when a caller supplies none.
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{
		BlurKernel:     3,
		CannyLow:       100,
		CannyHigh:      200,
		SobelKSize:     3,
		LaplacianKSize: 3,
	}
}

// Normalized clamps every parameter into its valid range.
//
//   - BlurKernel: even values are bumped to the next odd value, then clamped to 1-31.
//   - CannyLow, CannyHigh: clamped to 0-255.
//   - SobelKSize, LaplacianKSize: clamped to 1-7 and bumped to odd.
func (p EdgeParams) Normalized() EdgeParams {
	if p.BlurKernel%2 == 0 {
		p.BlurKernel++
	}
	p.BlurKernel = clamp(p.BlurKernel, 1, 31)
	p.CannyLow = clamp(p.CannyLow, 0, 255)
	p.CannyHigh = clamp(p.CannyHigh, 0, 255)
	p.SobelKSize = oddKSize(p.SobelKSize)
	p.LaplacianKSize = oddKSize(p.LaplacianKSize)
	return p
}

func oddKSize(k int) int {
	k = clamp(k, 1, 7)
	if k%2 == 0 {
		k++
	}
	return k
}

// EdgeFilter is a single edge-detection algorithm.
//
// Apply receives a blurred grayscale image and returns an edge map of the same size
// where brighter pixels are stronger edges.
type EdgeFilter interface {
	Algorithm() Algorithm
	Apply(gray *image.Gray, p EdgeParams) *image.Gray
}

// FilterFor returns the filter implementing a.
func FilterFor(a Algorithm) (EdgeFilter, error) {
	switch a {
	case Canny:
		return cannyFilter{}, nil
	case Sobel:
		return sobelFilter{}, nil
	case Prewitt:
		return prewittFilter{}, nil
	case Laplacian:
		return laplacianFilter{}, nil
	}
	return nil, fmt.Errorf("unsupported edge algorithm %v", a)
}

// DetectEdges runs the full edge pipeline: grayscale, Gaussian pre-blur, filter.
// Parameters are normalized before use.
func DetectEdges(img image.Image, a Algorithm, p EdgeParams) (*image.Gray, error) {
	filter, err := FilterFor(a)
	if err != nil {
		return nil, err
	}
	p = p.Normalized()
	gray := GaussianBlur(Grayscale(img), p.BlurKernel)
	return filter.Apply(gray, p), nil
}

// GaussianBlur smooths gray with a kernel-tap Gaussian. A kernel of 1 or less
// returns gray unchanged.
//
// bild derives its kernel length from the radius as ceil(2r+1), so radius
// (kernel-1)/2 yields exactly kernel taps.
func GaussianBlur(gray *image.Gray, kernel int) *image.Gray {
	if kernel <= 1 {
		return gray
	}
	return grayFromRGBA(blur.Gaussian(gray, float64(kernel-1)/2))
}

// InvertGray returns the photographic negative of an edge map.
func InvertGray(g *image.Gray) *image.Gray {
	return grayFromRGBA(effect.Invert(g))
}

func grayFromRGBA(src *image.RGBA) *image.Gray {
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

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
type EdgeDetectResult struct {
	// Algorithm is the filter that produced the image.
	Algorithm string `json:"algorithm"`

	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs DetectEdges, optionally inverts the result (dark lines on white,
// the usual line-art look), and encodes it as base64 PNG.
func EdgeDetect(img image.Image, a Algorithm, p EdgeParams, invert bool) (*EdgeDetectResult, error) {
	edges, err := DetectEdges(img, a, p)
	if err != nil {
		return nil, err
	}
	if invert {
		edges = InvertGray(edges)
	}

	encoded, err := EncodePNGBase64(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Algorithm:   a.String(),
		Width:       edges.Bounds().Dx(),
		Height:      edges.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

type cannyFilter struct{}

func (cannyFilter) Algorithm() Algorithm { return Canny }

// Apply performs Canny edge detection on an already blurred image.
//
// # Algorithm
//
//  1. Gradient computation: 3x3 Sobel operators, magnitude = sqrt(Gx² + Gy²),
//     direction = atan2(Gy, Gx)
//
//  2. Non-maximum suppression: keep only local maxima along the gradient direction
//
//  3. Hysteresis: pixels at or above CannyHigh are strong edges; pixels at or above
//     CannyLow are kept when 8-connected (directly or through other kept pixels)
//     to a strong edge
//
// Thresholds compare against the gradient of 0-255 gray values.
func (cannyFilter) Apply(gray *image.Gray, p EdgeParams) *image.Gray {
	src := grayToFloat(gray)
	height := len(src)
	width := 0
	if height > 0 {
		width = len(src[0])
	}

	gradX := convolveSeparable(src, []float64{-1, 0, 1}, []float64{1, 2, 1})
	gradY := convolveSeparable(src, []float64{1, 2, 1}, []float64{-1, 0, 1})

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			gx, gy := gradX[y][x], gradY[y][x]
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	result := image.NewGray(image.Rect(0, 0, width, height))
	low, high := float64(p.CannyLow), float64(p.CannyHigh)
	if low > high {
		low, high = high, low
	}

	stack := make([]image.Point, 0, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= high && suppressed[y][x] > 0 && result.Pix[y*width+x] == 0 {
				result.Pix[y*width+x] = 255
				stack = append(stack, image.Point{X: x, Y: y})
			}
			for len(stack) > 0 {
				pt := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						px, py := pt.X+kx, pt.Y+ky
						if px < 0 || py < 0 || px >= width || py >= height {
							continue
						}
						v := suppressed[py][px]
						if v > 0 && v >= low && result.Pix[py*width+px] == 0 {
							result.Pix[py*width+px] = 255
							stack = append(stack, image.Point{X: px, Y: py})
						}
					}
				}
			}
		}
	}

	return result
}

type sobelFilter struct{}

func (sobelFilter) Algorithm() Algorithm { return Sobel }

// Apply computes the Sobel gradient magnitude, scaled so the strongest edge is 255.
func (sobelFilter) Apply(gray *image.Gray, p EdgeParams) *image.Gray {
	src := grayToFloat(gray)
	deriv, smooth := sobelKernels(oddKSize(p.SobelKSize))
	gx := convolveSeparable(src, deriv, smooth)
	gy := convolveSeparable(src, smooth, deriv)
	return normalizedMagnitude(gx, gy)
}

type prewittFilter struct{}

func (prewittFilter) Algorithm() Algorithm { return Prewitt }

// Apply computes the Prewitt gradient magnitude, scaled so the strongest edge is 255.
func (prewittFilter) Apply(gray *image.Gray, _ EdgeParams) *image.Gray {
	src := grayToFloat(gray)
	deriv := []float64{-1, 0, 1}
	smooth := []float64{1, 1, 1}
	gx := convolveSeparable(src, deriv, smooth)
	gy := convolveSeparable(src, smooth, deriv)
	return normalizedMagnitude(gx, gy)
}

type laplacianFilter struct{}

func (laplacianFilter) Algorithm() Algorithm { return Laplacian }

// Apply computes |∇²I| saturated to 255.
//
// Aperture 1 uses the 4-neighbour kernel [0 1 0; 1 -4 1; 0 1 0]. Larger apertures sum
// the second-derivative Sobel kernels in x and y (aperture 3 gives [2 0 2; 0 -8 0; 2 0 2]).
func (laplacianFilter) Apply(gray *image.Gray, p EdgeParams) *image.Gray {
	src := grayToFloat(gray)
	k := oddKSize(p.LaplacianKSize)

	var lap [][]float64
	if k == 1 {
		dxx := convolveSeparable(src, []float64{1, -2, 1}, []float64{1})
		dyy := convolveSeparable(src, []float64{1}, []float64{1, -2, 1})
		lap = addGrids(dxx, dyy)
	} else {
		d2 := binomialKernel(k, 2)
		smooth := binomialKernel(k, 0)
		lap = addGrids(convolveSeparable(src, d2, smooth), convolveSeparable(src, smooth, d2))
	}

	height := len(lap)
	out := image.NewGray(gray.Bounds().Sub(gray.Bounds().Min))
	for y := 0; y < height; y++ {
		for x := range lap[y] {
			out.Pix[y*out.Stride+x] = saturate(math.Abs(lap[y][x]))
		}
	}
	return out
}

// sobelKernels returns the 1-D derivative and smoothing kernels for a Sobel aperture.
// Aperture 1 means a 3-tap derivative without smoothing.
func sobelKernels(ksize int) (deriv, smooth []float64) {
	if ksize == 1 {
		return []float64{-1, 0, 1}, []float64{1}
	}
	return binomialKernel(ksize, 1), binomialKernel(ksize, 0)
}

// binomialKernel builds the size-tap kernel of the given derivative order:
// (1+z)^(size-1-order) * (z-1)^order, e.g. size 5 order 1 is [-1 -2 0 2 1].
func binomialKernel(size, order int) []float64 {
	k := []float64{1}
	for i := 0; i < size-1-order; i++ {
		k = polyMul(k, []float64{1, 1})
	}
	for i := 0; i < order; i++ {
		k = polyMul(k, []float64{-1, 1})
	}
	return k
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// convolveSeparable correlates src with the kernel outer(ky, kx): kx runs along rows,
// ky along columns. Borders replicate the edge pixel.
func convolveSeparable(src [][]float64, kx, ky []float64) [][]float64 {
	height := len(src)
	if height == 0 {
		return nil
	}
	width := len(src[0])

	tmp := make([][]float64, height)
	rx := len(kx) / 2
	for y := 0; y < height; y++ {
		tmp[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for i, k := range kx {
				sum += src[y][clamp(x+i-rx, 0, width-1)] * k
			}
			tmp[y][x] = sum
		}
	}

	out := make([][]float64, height)
	ry := len(ky) / 2
	for y := 0; y < height; y++ {
		out[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for i, k := range ky {
				sum += tmp[clamp(y+i-ry, 0, height-1)][x] * k
			}
			out[y][x] = sum
		}
	}
	return out
}

func addGrids(a, b [][]float64) [][]float64 {
	for y := range a {
		for x := range a[y] {
			a[y][x] += b[y][x]
		}
	}
	return a
}

// normalizedMagnitude returns sqrt(gx²+gy²) scaled so the maximum maps to 255.
// A flat image (maximum 0) yields an all-black map.
func normalizedMagnitude(gx, gy [][]float64) *image.Gray {
	height := len(gx)
	width := 0
	if height > 0 {
		width = len(gx[0])
	}

	mag := make([]float64, width*height)
	var peak float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m := math.Hypot(gx[y][x], gy[y][x])
			mag[y*width+x] = m
			if m > peak {
				peak = m
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	if peak == 0 {
		return out
	}
	for i, m := range mag {
		out.Pix[i] = saturate(m / peak * 255)
	}
	return out
}

func grayToFloat(g *image.Gray) [][]float64 {
	b := g.Bounds()
	out := make([][]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		out[y] = make([]float64, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			out[y][x] = float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return out
}

func saturate(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
