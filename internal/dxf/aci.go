package dxf

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	paletteOnce sync.Once
	palette     [256]colorful.Color
)

// aciPalette builds the AutoCAD Color Index table for indices 1..255.
//
// 1..9 are the named colours, 10..249 cover 24 hues in 15 degree steps with ten
// shades each (five brightness levels, full and half saturation), and 250..255 are
// grays.
func aciPalette() *[256]colorful.Color {
	paletteOnce.Do(func() {
		named := [...]colorful.Color{
			1: {R: 1},
			2: {R: 1, G: 1},
			3: {G: 1},
			4: {G: 1, B: 1},
			5: {B: 1},
			6: {R: 1, B: 1},
			7: {R: 1, G: 1, B: 1},
			8: {R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255},
			9: {R: 192.0 / 255, G: 192.0 / 255, B: 192.0 / 255},
		}
		copy(palette[:], named[:])

		values := [5]float64{1, 0.8, 0.6, 0.5, 0.3}
		for i := 10; i <= 249; i++ {
			hue := float64((i-10)/10) * 15
			shade := (i - 10) % 10
			sat := 1.0
			if shade%2 == 1 {
				sat = 0.5
			}
			palette[i] = colorful.Hsv(hue, sat, values[shade/2])
		}

		grays := [6]float64{51, 91, 132, 173, 214, 255}
		for i, g := range grays {
			v := g / 255
			palette[250+i] = colorful.Color{R: v, G: v, B: v}
		}
	})
	return &palette
}

// ACIColor returns the RGB colour of an ACI index in 1..255. ByBlock, ByLayer and
// out-of-range indices return black.
func ACIColor(index int) colorful.Color {
	if index < 1 || index > 255 {
		return colorful.Color{}
	}
	return aciPalette()[index]
}

// NearestACI returns the ACI index in 1..255 closest to c in CIE Lab space.
// Ties go to the lower index.
func NearestACI(c colorful.Color) int {
	p := aciPalette()
	best, bestDist := 1, c.DistanceLab(p[1])
	for i := 2; i <= 255; i++ {
		if d := c.DistanceLab(p[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ParseColor accepts an ACI index ("1".."255") or a hex colour ("#RRGGBB"),
// returning an ACI index. Hex colours map to the nearest palette entry.
func ParseColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a #RRGGBB colour", ErrInvalidColor, s)
		}
		return NearestACI(c), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither an ACI index nor #RRGGBB", ErrInvalidColor, s)
	}
	if n < 1 || n > 255 {
		return 0, fmt.Errorf("%w: %d (want 1..255)", ErrInvalidColor, n)
	}
	return n, nil
}
