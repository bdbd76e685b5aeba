package contour

import (
	"fmt"
	"math"
	"strings"
)

// Point is a vertex in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contour is a closed border. The closing edge from the last point back to the
// first is implicit.
type Contour struct {
	Points []Point `json:"points"`

	// Hole reports whether the border separates a background hole from the
	// foreground region around it.
	Hole bool `json:"hole"`

	// Parent is the index of the enclosing border in the slice returned by
	// Extract, or -1. Filtering does not renumber it.
	Parent int `json:"parent"`
}

// Len returns the number of vertices.
func (c Contour) Len() int { return len(c.Points) }

// Bounds returns the axis-aligned bounding box of the vertices. An empty contour
// returns all zeros.
func (c Contour) Bounds() (minX, minY, maxX, maxY float64) {
	if len(c.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range c.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Approximation selects how Extract encodes a traced border.
type Approximation int

const (
	// ApproxNone keeps every boundary pixel.
	ApproxNone Approximation = iota

	// ApproxSimple keeps only the pixels where the chain changes direction.
	ApproxSimple
)

func (a Approximation) String() string {
	switch a {
	case ApproxNone:
		return "none"
	case ApproxSimple:
		return "simple"
	}
	return fmt.Sprintf("Approximation(%d)", int(a))
}

// ParseApproximation parses "none" (or "full", or empty) and "simple".
func ParseApproximation(s string) (Approximation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "full":
		return ApproxNone, nil
	case "simple":
		return ApproxSimple, nil
	}
	return ApproxNone, fmt.Errorf("unknown chain approximation %q (want none or simple)", s)
}

// MinPoints is the fewest vertices a contour needs to be written out.
const MinPoints = 3

// FilterDegenerate returns the contours with at least MinPoints vertices.
func FilterDegenerate(contours []Contour) []Contour {
	out := make([]Contour, 0, len(contours))
	for _, c := range contours {
		if len(c.Points) >= MinPoints {
			out = append(out, c)
		}
	}
	return out
}

// IsFrame reports whether c is the outline of the whole width×height mask: an
// outer border that runs along the image edge through all four corners and
// never leaves it. Paper traced as foreground produces such a border. Drawn
// content that merely reaches every edge has vertices inside the image and is
// not a frame.
func IsFrame(c Contour, width, height int) bool {
	n := len(c.Points)
	if c.Hole || n < 4 || width < 1 || height < 1 {
		return false
	}
	right, bottom := float64(width-1), float64(height-1)
	var corners [4]bool
	for i, p := range c.Points {
		if !onSameEdge(p, c.Points[(i+1)%n], right, bottom) {
			return false
		}
		switch {
		case p.X == 0 && p.Y == 0:
			corners[0] = true
		case p.X == right && p.Y == 0:
			corners[1] = true
		case p.X == right && p.Y == bottom:
			corners[2] = true
		case p.X == 0 && p.Y == bottom:
			corners[3] = true
		}
	}
	return corners == [4]bool{true, true, true, true}
}

// onSameEdge reports whether a and b both lie on one side of the image border.
func onSameEdge(a, b Point, right, bottom float64) bool {
	return (a.X == 0 && b.X == 0) || (a.X == right && b.X == right) ||
		(a.Y == 0 && b.Y == 0) || (a.Y == bottom && b.Y == bottom)
}

// DropFrame returns the contours that are not frame borders (see IsFrame).
func DropFrame(contours []Contour, width, height int) []Contour {
	out := make([]Contour, 0, len(contours))
	for _, c := range contours {
		if !IsFrame(c, width, height) {
			out = append(out, c)
		}
	}
	return out
}

// TotalPoints sums the vertex counts of all contours.
func TotalPoints(contours []Contour) int {
	n := 0
	for _, c := range contours {
		n += len(c.Points)
	}
	return n
}
