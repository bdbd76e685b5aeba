package contour

import (
	"image"

	"github.com/ironsheep/raster2dxf/internal/imaging"
)

// Neighbor offsets indexed by chain direction. Increasing the index turns
// counterclockwise on screen (Y grows downward).
var chainDirs = [8]image.Point{
	{X: 1, Y: 0},   // 0 E
	{X: 1, Y: -1},  // 1 NE
	{X: 0, Y: -1},  // 2 N
	{X: -1, Y: -1}, // 3 NW
	{X: -1, Y: 0},  // 4 W
	{X: -1, Y: 1},  // 5 SW
	{X: 0, Y: 1},   // 6 S
	{X: 1, Y: 1},   // 7 SE
}

// direction returns the chain index of the step from a to its 8-neighbor b.
func direction(a, b image.Point) int {
	d := b.Sub(a)
	for i, o := range chainDirs {
		if o == d {
			return i
		}
	}
	return -1
}

// labelGrid is the working copy of a mask with a one-pixel background frame.
// Zero is background, 1 is untraced foreground, and ±k marks pixels on border k.
type labelGrid struct {
	w, h int
	f    []int32
}

func newLabelGrid(m *imaging.Mask) *labelGrid {
	g := &labelGrid{w: m.Width + 2, h: m.Height + 2}
	g.f = make([]int32, g.w*g.h)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] == imaging.Foreground {
				g.f[(y+1)*g.w+x+1] = 1
			}
		}
	}
	return g
}

func (g *labelGrid) at(p image.Point) int32 { return g.f[p.Y*g.w+p.X] }

func (g *labelGrid) set(p image.Point, v int32) { g.f[p.Y*g.w+p.X] = v }

// border records what Extract learned about one traced border.
type border struct {
	hole   bool
	index  int // position in the output slice, -1 for the frame
	parent int
}

// Extract finds every border of the foreground regions in m using the Suzuki-Abe
// border following algorithm with 8-connected foreground. Samples outside the mask
// are background.
//
// Contours are returned in raster discovery order: a border appears when the scan
// first meets its top-left pixel. Single-pixel regions and one-pixel-wide spurs yield
// contours of one or two points; they are reported, not dropped.
func Extract(m *imaging.Mask, approx Approximation) []Contour {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil
	}

	g := newLabelGrid(m)

	// Border 1 is the frame around the image and counts as a hole border.
	borders := []border{{}, {hole: true, index: -1, parent: -1}}
	var contours []Contour
	nbd := int32(1)

	for y := 1; y < g.h-1; y++ {
		lnbd := int32(1)
		for x := 1; x < g.w-1; x++ {
			p := image.Point{X: x, Y: y}
			fij := g.at(p)
			if fij == 0 {
				continue
			}

			var from image.Point
			var hole bool
			switch {
			case fij == 1 && g.at(image.Point{X: x - 1, Y: y}) == 0:
				from = image.Point{X: x - 1, Y: y}
			case fij >= 1 && g.at(image.Point{X: x + 1, Y: y}) == 0:
				from = image.Point{X: x + 1, Y: y}
				hole = true
				if fij > 1 {
					lnbd = fij
				}
			default:
				if v := g.at(p); v != 1 {
					lnbd = abs32(v)
				}
				continue
			}

			nbd++
			prev := borders[lnbd]
			parent := prev.index
			if hole == prev.hole {
				parent = prev.parent
			}
			borders = append(borders, border{hole: hole, index: len(contours), parent: parent})

			pts := g.follow(p, from, nbd)
			if approx == ApproxSimple {
				pts = compressChain(pts)
			}
			contours = append(contours, Contour{
				Points: toPoints(pts),
				Hole:   hole,
				Parent: parent,
			})

			if v := g.at(p); v != 1 {
				lnbd = abs32(v)
			}
		}
	}
	return contours
}

// follow traces the border through start, entered from the background pixel from,
// labelling it nbd. It returns the pixels in tracing order.
func (g *labelGrid) follow(start, from image.Point, nbd int32) []image.Point {
	// Clockwise search from the entry pixel for the first foreground neighbor.
	d0 := direction(start, from)
	var first image.Point
	found := false
	for k := 0; k < 8; k++ {
		q := start.Add(chainDirs[(d0-k+8)%8])
		if g.at(q) != 0 {
			first = q
			found = true
			break
		}
	}
	if !found {
		g.set(start, -nbd)
		return []image.Point{start}
	}

	pts := []image.Point{start}
	p2, p3 := first, start
	for {
		// Counterclockwise search around p3, starting just past p2.
		d := direction(p3, p2)
		eastExamined := false
		var p4 image.Point
		for k := 1; k <= 8; k++ {
			dir := (d + k) % 8
			q := p3.Add(chainDirs[dir])
			if g.at(q) != 0 {
				p4 = q
				break
			}
			if dir == 0 {
				eastExamined = true
			}
		}

		switch {
		case eastExamined:
			g.set(p3, -nbd)
		case g.at(p3) == 1:
			g.set(p3, nbd)
		}

		if p4 == start && p3 == first {
			return pts
		}
		p2, p3 = p3, p4
		pts = append(pts, p3)
	}
}

// compressChain keeps only the pixels where the incoming and outgoing chain
// directions differ, treating the sequence as cyclic.
func compressChain(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]image.Point, 0, n/2+1)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		next := pts[(i+1)%n]
		if direction(prev, pts[i]) != direction(pts[i], next) {
			out = append(out, pts[i])
		}
	}
	if len(out) == 0 {
		return pts
	}
	return out
}

// toPoints converts padded grid pixels to mask coordinates.
func toPoints(pts []image.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: float64(p.X - 1), Y: float64(p.Y - 1)}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
