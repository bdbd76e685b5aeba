package imaging

import "testing"

// maskFromRows builds a mask from strings where '#' is foreground.
func maskFromRows(rows ...string) *Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				m.Set(x, y, Foreground)
			}
		}
	}
	return m
}

func maskRows(m *Mask) []string {
	rows := make([]string, m.Height)
	for y := 0; y < m.Height; y++ {
		b := make([]byte, m.Width)
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) == Foreground {
				b[x] = '#'
			} else {
				b[x] = '.'
			}
		}
		rows[y] = string(b)
	}
	return rows
}

func assertRows(t *testing.T, got *Mask, want ...string) {
	t.Helper()
	rows := maskRows(got)
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("mask mismatch\n got: %v\nwant: %v", rows, want)
		}
	}
}

func TestDilate_Cross(t *testing.T) {
	m := maskFromRows(
		".....",
		".....",
		"..#..",
		".....",
		".....",
	)
	assertRows(t, Dilate(m, CrossElement()),
		".....",
		"..#..",
		".###.",
		"..#..",
		".....",
	)
}

func TestErode_Cross(t *testing.T) {
	m := maskFromRows(
		".....",
		"..#..",
		".###.",
		"..#..",
		".....",
	)
	assertRows(t, Erode(m, CrossElement()),
		".....",
		".....",
		"..#..",
		".....",
		".....",
	)
}

func TestErode_EdgeContentSurvives(t *testing.T) {
	// Outside the mask does not count as background for erosion.
	m := maskFromRows(
		"###",
		"###",
	)
	assertRows(t, Erode(m, CrossElement()),
		"###",
		"###",
	)
}

func TestOpen_RemovesSpeckle(t *testing.T) {
	m := maskFromRows(
		"#......",
		"...###.",
		"...###.",
		"...###.",
		".......",
	)
	assertRows(t, Open(m, CrossElement()),
		".......",
		"....#..",
		"...###.",
		"....#..",
		".......",
	)
}

func TestDilate_DoesNotMutateInput(t *testing.T) {
	m := maskFromRows("...", ".#.", "...")
	before := m.Count()
	Dilate(m, CrossElement())
	if m.Count() != before {
		t.Error("Dilate modified its input")
	}
}

func TestSkeletonize_Bar(t *testing.T) {
	m := maskFromRows(
		"..........",
		".########.",
		".########.",
		".########.",
		"..........",
	)
	sk := Skeletonize(m)

	// The interior columns keep exactly one pixel each, all on the middle row.
	for x := 3; x <= 6; x++ {
		n := 0
		for y := 0; y < sk.Height; y++ {
			if sk.At(x, y) == Foreground {
				n++
			}
		}
		if n != 1 || sk.At(x, 2) != Foreground {
			t.Errorf("column %d has %d skeleton pixels, want 1\n%v", x, n, maskRows(sk))
		}
	}
	if m.Count() != 24 {
		t.Error("Skeletonize modified its input")
	}
}

func TestSkeletonize_SinglePixelLineUnchanged(t *testing.T) {
	m := maskFromRows(
		".......",
		".#####.",
		".......",
	)
	sk := Skeletonize(m)
	if sk.Count() < 3 {
		t.Errorf("a 1-pixel line should mostly survive, got %d pixels", sk.Count())
	}
}
