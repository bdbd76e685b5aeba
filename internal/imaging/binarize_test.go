package imaging

import (
	"image"
	"image/color"
	"testing"
)

// grayImage builds a w×h gray image where every pixel has value v.
func grayImage(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestThreshold_Boundary(t *testing.T) {
	tests := []struct {
		name      string
		gray      uint8
		threshold int
		invert    bool
		want      uint8
	}{
		{"equal non-inverted is background", 128, 128, false, Background},
		{"equal inverted is foreground", 128, 128, true, Foreground},
		{"above non-inverted is foreground", 129, 128, false, Foreground},
		{"above inverted is background", 129, 128, true, Background},
		{"below non-inverted is background", 127, 128, false, Background},
		{"below inverted is foreground", 127, 128, true, Foreground},
		{"zero threshold, black", 0, 0, false, Background},
		{"max threshold, white", 255, 255, false, Background},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := Threshold(grayImage(3, 2, tt.gray), tt.threshold, tt.invert)
			for i, v := range mask.Pix {
				if v != tt.want {
					t.Fatalf("sample %d: got %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestBinarize_BorderPadding(t *testing.T) {
	img := createInMemoryImage(30, 17, color.White)

	plain := Binarize(img, BinarizeOptions{Threshold: 128})
	padded := Binarize(img, BinarizeOptions{Threshold: 128, AddBorder: true})

	if padded.Width != plain.Width+2*BorderWidth || padded.Height != plain.Height+2*BorderWidth {
		t.Fatalf("padded size: got %dx%d, want %dx%d",
			padded.Width, padded.Height, plain.Width+20, plain.Height+20)
	}

	for y := 0; y < padded.Height; y++ {
		for x := 0; x < padded.Width; x++ {
			inBorder := x < BorderWidth || y < BorderWidth ||
				x >= padded.Width-BorderWidth || y >= padded.Height-BorderWidth
			v := padded.At(x, y)
			if inBorder && v != Background {
				t.Fatalf("border pixel (%d,%d) is %d, want background", x, y, v)
			}
			if !inBorder && v != Foreground {
				t.Fatalf("interior pixel (%d,%d) is %d, want foreground", x, y, v)
			}
		}
	}
}

func TestBinarize_Downscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"within bound", 1200, 800, 1200, 800},
		{"exactly max", MaxWidth, 10, MaxWidth, 10},
		{"double width", 4000, 1000, 2000, 500},
		{"height rounds down", 3000, 1001, 2000, 667},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewGray(image.Rect(0, 0, tt.w, tt.h))
			mask := Binarize(img, BinarizeOptions{Threshold: 128})
			if mask.Width != tt.wantW || mask.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", mask.Width, mask.Height, tt.wantW, tt.wantH)
			}
			if len(mask.Pix) != mask.Width*mask.Height {
				t.Errorf("Pix length %d does not match %dx%d", len(mask.Pix), mask.Width, mask.Height)
			}
		})
	}
}

func TestBinarize_CustomMaxWidth(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 90))
	mask := Binarize(img, BinarizeOptions{Threshold: 128, MaxWidth: 100})
	if mask.Width != 100 || mask.Height != 30 {
		t.Errorf("got %dx%d, want 100x30", mask.Width, mask.Height)
	}
}

func TestBinarize_ColorUsesLuminance(t *testing.T) {
	// Pure green has luminance 0.587*255 ≈ 150, pure blue ≈ 29.
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0, 255, 0, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	mask := Binarize(img, BinarizeOptions{Threshold: 100})
	if mask.At(0, 0) != Foreground {
		t.Error("green should be above threshold 100")
	}
	if mask.At(1, 0) != Background {
		t.Error("blue should be below threshold 100")
	}
}

func TestBinarize_NonZeroOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	src.SetGray(6, 6, color.Gray{Y: 255})
	sub := src.SubImage(image.Rect(5, 5, 10, 10))

	mask := Binarize(sub, BinarizeOptions{Threshold: 128})
	if mask.Width != 5 || mask.Height != 5 {
		t.Fatalf("got %dx%d, want 5x5", mask.Width, mask.Height)
	}
	if mask.At(1, 1) != Foreground {
		t.Error("pixel (6,6) of the source should land at (1,1) of the mask")
	}
	if mask.Count() != 1 {
		t.Errorf("Count: got %d, want 1", mask.Count())
	}
}

func TestBinarize_ThinStrategies(t *testing.T) {
	// A 9px thick horizontal bar.
	img := image.NewGray(image.Rect(0, 0, 40, 21))
	for y := 6; y < 15; y++ {
		for x := 5; x < 35; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	morph := Binarize(img, BinarizeOptions{Threshold: 128, Thin: true, ThinStrategy: ThinMorph})
	skeleton := Binarize(img, BinarizeOptions{Threshold: 128, Thin: true, ThinStrategy: ThinSkeleton})
	plain := Binarize(img, BinarizeOptions{Threshold: 128})

	if morph.Count() < plain.Count() {
		t.Errorf("morph thinning should not shrink a solid bar: %d < %d", morph.Count(), plain.Count())
	}
	if skeleton.Count() >= plain.Count()/4 {
		t.Errorf("skeleton should be much thinner: %d of %d pixels", skeleton.Count(), plain.Count())
	}
	if skeleton.Count() == 0 {
		t.Error("skeleton should not be empty")
	}
}

func TestParseThinStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    ThinStrategy
		wantErr bool
	}{
		{"", ThinMorph, false},
		{"morph", ThinMorph, false},
		{"skeleton", ThinSkeleton, false},
		{"zhang", ThinMorph, true},
	}
	for _, tt := range tests {
		got, err := ParseThinStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseThinStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseThinStrategy(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMask_GrayRoundTrip(t *testing.T) {
	m := NewMask(4, 3)
	m.Set(0, 0, Foreground)
	m.Set(3, 2, Foreground)
	m.Set(10, 10, Foreground) // ignored

	g := m.Gray()
	if g.GrayAt(0, 0).Y != 255 || g.GrayAt(3, 2).Y != 255 || g.GrayAt(1, 1).Y != 0 {
		t.Error("Gray() did not render foreground as 255 and background as 0")
	}

	back := Threshold(g, 0, false)
	for i := range m.Pix {
		if back.Pix[i] != m.Pix[i] {
			t.Fatalf("round trip mismatch at %d", i)
		}
	}
	if m.At(-1, 0) != Background || m.At(4, 0) != Background {
		t.Error("out-of-range At should read background")
	}
}
