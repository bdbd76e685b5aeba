package contour

import "math"

// FitSpline fits a periodic cubic interpolating spline through the closed polygon
// and samples it at SplineResample*len(points) parameter values evenly spaced over
// one period, starting at the first vertex.
//
// The curve is parameterized by normalized cumulative chord length. It passes
// through every vertex and closes with matching first and second derivatives.
//
// ok is false when fewer than MinPoints vertices are given, when two consecutive
// vertices (the closing pair included) coincide, or when the fit produces a
// non-finite value.
func FitSpline(points []Point) (out []Point, ok bool) {
	n := len(points)
	if n < MinPoints {
		return nil, false
	}

	// Knot spacing h[i] between vertex i and i+1 (mod n), normalized to sum 1.
	h := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		d := math.Hypot(points[j].X-points[i].X, points[j].Y-points[i].Y)
		if d == 0 {
			return nil, false
		}
		h[i] = d
		total += d
	}
	knots := make([]float64, n+1)
	for i := 0; i < n; i++ {
		h[i] /= total
		knots[i+1] = knots[i] + h[i]
	}
	knots[n] = 1

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	mx, okx := periodicSecondDerivatives(h, xs)
	my, oky := periodicSecondDerivatives(h, ys)
	if !okx || !oky {
		return nil, false
	}

	m := SplineResample * n
	out = make([]Point, m)
	seg := 0
	for k := 0; k < m; k++ {
		s := float64(k) / float64(m)
		for seg < n-1 && s >= knots[seg+1] {
			seg++
		}
		x := evalSegment(knots, h, xs, mx, seg, s)
		y := evalSegment(knots, h, ys, my, seg, s)
		if !finite(x) || !finite(y) {
			return nil, false
		}
		out[k] = Point{X: x, Y: y}
	}
	return out, true
}

// periodicSecondDerivatives solves the cyclic tridiagonal system for the second
// derivatives of a periodic cubic spline through values v with knot spacing h.
func periodicSecondDerivatives(h, v []float64) ([]float64, bool) {
	n := len(v)
	a := make([]float64, n) // sub-diagonal
	b := make([]float64, n) // diagonal
	c := make([]float64, n) // super-diagonal
	r := make([]float64, n)
	for i := 0; i < n; i++ {
		hp := h[(i-1+n)%n]
		hi := h[i]
		a[i] = hp
		b[i] = 2 * (hp + hi)
		c[i] = hi
		next := v[(i+1)%n]
		prev := v[(i-1+n)%n]
		r[i] = 6 * ((next-v[i])/hi - (v[i]-prev)/hp)
	}
	// The corners of the cyclic matrix are a[0] (top right) and c[n-1] (bottom left).
	return solveCyclic(a, b, c, c[n-1], a[0], r)
}

// solveCyclic solves a cyclic tridiagonal system with the Sherman-Morrison
// correction. alpha is the bottom-left corner and beta the top-right corner.
func solveCyclic(a, b, c []float64, alpha, beta float64, r []float64) ([]float64, bool) {
	n := len(b)
	gamma := -b[0]
	if gamma == 0 {
		return nil, false
	}

	bb := make([]float64, n)
	copy(bb, b)
	bb[0] = b[0] - gamma
	bb[n-1] = b[n-1] - alpha*beta/gamma

	x, ok := solveTridiagonal(a, bb, c, r)
	if !ok {
		return nil, false
	}

	u := make([]float64, n)
	u[0] = gamma
	u[n-1] = alpha
	z, ok := solveTridiagonal(a, bb, c, u)
	if !ok {
		return nil, false
	}

	denom := 1 + z[0] + beta*z[n-1]/gamma
	if denom == 0 {
		return nil, false
	}
	fact := (x[0] + beta*x[n-1]/gamma) / denom
	for i := range x {
		x[i] -= fact * z[i]
		if !finite(x[i]) {
			return nil, false
		}
	}
	return x, true
}

// solveTridiagonal runs the Thomas algorithm. a[0] and c[n-1] are ignored.
func solveTridiagonal(a, b, c, r []float64) ([]float64, bool) {
	n := len(b)
	x := make([]float64, n)
	gam := make([]float64, n)

	bet := b[0]
	if bet == 0 {
		return nil, false
	}
	x[0] = r[0] / bet
	for i := 1; i < n; i++ {
		gam[i] = c[i-1] / bet
		bet = b[i] - a[i]*gam[i]
		if bet == 0 {
			return nil, false
		}
		x[i] = (r[i] - a[i]*x[i-1]) / bet
	}
	for i := n - 2; i >= 0; i-- {
		x[i] -= gam[i+1] * x[i+1]
	}
	return x, true
}

// evalSegment evaluates the spline on segment i at parameter s.
func evalSegment(knots, h, v, m []float64, i int, s float64) float64 {
	n := len(v)
	j := (i + 1) % n
	hi := h[i]
	t0, t1 := knots[i], knots[i+1]
	l, r := t1-s, s-t0
	return m[i]*l*l*l/(6*hi) + m[j]*r*r*r/(6*hi) +
		(v[i]/hi-m[i]*hi/6)*l +
		(v[j]/hi-m[j]*hi/6)*r
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
