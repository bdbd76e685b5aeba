package imaging

import "image"

// StructuringElement is a set of offsets relative to the anchor pixel.
type StructuringElement []image.Point

// CrossElement returns the 3x3 cross: the anchor and its four direct neighbors.
func CrossElement() StructuringElement {
	return StructuringElement{
		{X: 0, Y: -1},
		{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 1},
	}
}

// Dilate sets a pixel to foreground when any element offset lands on foreground.
// Samples outside the mask never contribute.
func Dilate(m *Mask, se StructuringElement) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			for _, o := range se {
				px, py := x+o.X, y+o.Y
				if px < 0 || py < 0 || px >= m.Width || py >= m.Height {
					continue
				}
				if m.Pix[py*m.Width+px] == Foreground {
					out.Pix[y*m.Width+x] = Foreground
					break
				}
			}
		}
	}
	return out
}

// Erode keeps a pixel as foreground only when every in-bounds element offset is
// foreground. Samples outside the mask never contribute, so content touching the
// edge is not eaten away.
func Erode(m *Mask, se StructuringElement) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			keep := true
			for _, o := range se {
				px, py := x+o.X, y+o.Y
				if px < 0 || py < 0 || px >= m.Width || py >= m.Height {
					continue
				}
				if m.Pix[py*m.Width+px] != Foreground {
					keep = false
					break
				}
			}
			if keep {
				out.Pix[y*m.Width+x] = Foreground
			}
		}
	}
	return out
}

// Open is an erosion followed by a dilation with the same element.
func Open(m *Mask, se StructuringElement) *Mask {
	return Dilate(Erode(m, se), se)
}

// Skeletonize thins every foreground region to a 1-pixel-wide skeleton using the
// Zhang-Suen algorithm. The input is left untouched.
//
// Each iteration runs two sub-passes; a pass marks deletable boundary pixels first
// and removes them afterwards so the result does not depend on scan order. The loop
// stops when a full iteration deletes nothing.
func Skeletonize(m *Mask) *Mask {
	out := m.Clone()
	marked := make([]int, 0, 256)

	for {
		changed := false
		for pass := 0; pass < 2; pass++ {
			marked = marked[:0]
			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					if out.Pix[y*out.Width+x] != Foreground {
						continue
					}
					if zhangSuenDeletable(out, x, y, pass) {
						marked = append(marked, y*out.Width+x)
					}
				}
			}
			for _, i := range marked {
				out.Pix[i] = Background
			}
			if len(marked) > 0 {
				changed = true
			}
		}
		if !changed {
			return out
		}
	}
}

// zhangSuenDeletable evaluates the Zhang-Suen conditions for pixel (x, y).
//
// Neighbors are numbered P2..P9 clockwise starting north:
//
//	P9 P2 P3
//	P8 P1 P4
//	P7 P6 P5
func zhangSuenDeletable(m *Mask, x, y, pass int) bool {
	p := [8]uint8{
		m.At(x, y-1),   // P2
		m.At(x+1, y-1), // P3
		m.At(x+1, y),   // P4
		m.At(x+1, y+1), // P5
		m.At(x, y+1),   // P6
		m.At(x-1, y+1), // P7
		m.At(x-1, y),   // P8
		m.At(x-1, y-1), // P9
	}

	b := 0
	for _, v := range p {
		b += int(v)
	}
	if b < 2 || b > 6 {
		return false
	}

	a := 0
	for i := 0; i < 8; i++ {
		if p[i] == Background && p[(i+1)%8] == Foreground {
			a++
		}
	}
	if a != 1 {
		return false
	}

	p2, p4, p6, p8 := p[0], p[2], p[4], p[6]
	if pass == 0 {
		return p2*p4*p6 == 0 && p4*p6*p8 == 0
	}
	return p2*p4*p8 == 0 && p2*p6*p8 == 0
}
