package contour

import (
	"fmt"
	"strconv"
	"strings"
)

// RefinementKind names a refinement mode.
type RefinementKind int

const (
	// RefineNone leaves the points as traced.
	RefineNone RefinementKind = iota

	// RefineDensify inserts evenly spaced points along every edge.
	RefineDensify

	// RefineSpline replaces the polygon with samples of a closed cubic spline.
	RefineSpline
)

// SplineResample is the number of output points per input vertex in spline mode.
// It is also the densify factor used when the spline cannot be fitted.
const SplineResample = 8

// MaxDensifyFactor bounds the densify factor. Each contour grows by this factor,
// so an unbounded value exhausts memory.
const MaxDensifyFactor = 64

// Refinement is a refinement mode. Factor is only meaningful for RefineDensify.
type Refinement struct {
	Kind   RefinementKind
	Factor int
}

// String returns the request form of r: "none", "more_points_<n>" or "curve_edge".
func (r Refinement) String() string {
	switch r.Kind {
	case RefineDensify:
		return "more_points_" + strconv.Itoa(r.Factor)
	case RefineSpline:
		return "curve_edge"
	}
	return "none"
}

// ParseRefinement parses a precision mode. "more_points_<n>" requires an integer
// n in 1..MaxDensifyFactor. The empty string means "none".
func ParseRefinement(s string) (Refinement, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return Refinement{Kind: RefineNone}, nil
	case "curve_edge":
		return Refinement{Kind: RefineSpline}, nil
	}
	if rest, ok := strings.CutPrefix(s, "more_points_"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Refinement{}, fmt.Errorf("invalid densify factor in %q: want a positive integer", s)
		}
		if n > MaxDensifyFactor {
			return Refinement{}, fmt.Errorf("densify factor in %q exceeds %d", s, MaxDensifyFactor)
		}
		return Refinement{Kind: RefineDensify, Factor: n}, nil
	}
	return Refinement{}, fmt.Errorf("unknown precision mode %q (want none, more_points_<n> or curve_edge)", s)
}

// Refine applies r to a closed point sequence and returns a new slice.
func Refine(points []Point, r Refinement) []Point {
	switch r.Kind {
	case RefineDensify:
		return Densify(points, r.Factor)
	case RefineSpline:
		return Smooth(points)
	}
	return clonePoints(points)
}

// Densify inserts factor-1 evenly spaced points on every edge of the closed
// polygon, including the closing edge. The result has len(points)*factor points
// and the original vertex k sits at index k*factor.
//
// Sequences shorter than MinPoints and factors below 2 are returned as a copy.
// Factors above MaxDensifyFactor are clamped to it.
func Densify(points []Point, factor int) []Point {
	n := len(points)
	if n < MinPoints || factor <= 1 {
		return clonePoints(points)
	}
	factor = min(factor, MaxDensifyFactor)
	out := make([]Point, 0, n*factor)
	for i := 0; i < n; i++ {
		a, b := points[i], points[(i+1)%n]
		out = append(out, a)
		for k := 1; k < factor; k++ {
			t := float64(k) / float64(factor)
			out = append(out, Point{
				X: a.X + (b.X-a.X)*t,
				Y: a.Y + (b.Y-a.Y)*t,
			})
		}
	}
	return out
}

// Smooth fits a closed spline through points and falls back to
// Densify(points, SplineResample) when no spline can be fitted.
func Smooth(points []Point) []Point {
	if out, ok := FitSpline(points); ok {
		return out
	}
	return Densify(points, SplineResample)
}

func clonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
