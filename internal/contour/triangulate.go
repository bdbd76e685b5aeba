package contour

// Triangle is one fill primitive.
type Triangle struct {
	A, B, C Point
}

// Triangulate fans the closed polygon out from its first vertex, producing
// (P0, Pi, Pi+1) for i = 1..n-2. It returns nil for fewer than MinPoints points.
//
// The fan only covers the polygon exactly when every vertex is visible from P0,
// as for convex polygons. Concave borders get overlapping or spilling triangles.
func Triangulate(points []Point) []Triangle {
	n := len(points)
	if n < MinPoints {
		return nil
	}
	out := make([]Triangle, 0, n-2)
	for i := 1; i < n-1; i++ {
		out = append(out, Triangle{A: points[0], B: points[i], C: points[i+1]})
	}
	return out
}
