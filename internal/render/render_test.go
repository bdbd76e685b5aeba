package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/raster2dxf/internal/contour"
)

func square() contour.Contour {
	return contour.Contour{
		Parent: -1,
		Points: []contour.Point{{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15}},
	}
}

func red(t *testing.T, img image.Image, x, y int) uint32 {
	t.Helper()
	r, _, _, _ := img.At(x, y).RGBA()
	return r >> 8
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestContours_Outline(t *testing.T) {
	opts := DefaultOptions()
	opts.LineWidth = 3

	data, err := Contours(20, 20, []contour.Contour{square()}, opts)
	require.NoError(t, err)

	img := decode(t, data)
	assert.Equal(t, image.Rect(0, 0, 20, 20), img.Bounds())
	assert.Less(t, red(t, img, 5, 10), uint32(100), "outline pixel should be dark")
	assert.Greater(t, red(t, img, 10, 10), uint32(250), "interior should stay white")
	assert.Greater(t, red(t, img, 0, 0), uint32(250), "outside should stay white")
}

func TestContours_Fill(t *testing.T) {
	opts := DefaultOptions()
	opts.Fill = true

	data, err := Contours(20, 20, []contour.Contour{square()}, opts)
	require.NoError(t, err)

	img := decode(t, data)
	v := red(t, img, 10, 10)
	assert.Greater(t, v, uint32(150))
	assert.Less(t, v, uint32(230))
}

func TestContours_Errors(t *testing.T) {
	_, err := Contours(0, 10, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyCanvas)

	data, err := Contours(4, 4, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, red(t, decode(t, data), 2, 2), uint32(250))
}

func TestColors(t *testing.T) {
	assert.Equal(t, 0.0, lineColor(7).R)
	assert.Equal(t, 1.0, lineColor(1).R)
	assert.InDelta(t, 192.0/255, fillColor(0).R, 1e-9)
}
