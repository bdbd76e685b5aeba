// Package render rasterizes vectorized contours back to an image so the DXF
// output can be checked by eye without a CAD viewer.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/raster2dxf/internal/contour"
	"github.com/ironsheep/raster2dxf/internal/dxf"
)

// ErrEmptyCanvas is returned for a zero or negative canvas size.
var ErrEmptyCanvas = errors.New("render: canvas must be at least 1x1")

// Options controls the rendering. Colours are ACI indices.
type Options struct {
	// LineColor strokes every polyline. 0 and 7 render black on the white canvas.
	LineColor int
	LineWidth float64

	// Fill draws the fan triangles of each contour in FillColor before its outline.
	// 0 and 7 render as light gray so the outline stays visible.
	Fill      bool
	FillColor int
}

// DefaultOptions strokes one pixel wide black lines without fill.
func DefaultOptions() Options {
	return Options{LineColor: dxf.ColorWhite, LineWidth: 1}
}

// Contours draws contours on a white width×height canvas and returns PNG bytes.
// Coordinates are in pixel space, matching the mask the contours came from.
func Contours(width, height int, contours []contour.Contour, opts Options) ([]byte, error) {
	if width < 1 || height < 1 {
		return nil, ErrEmptyCanvas
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.White)

	if opts.Fill {
		setColor(dc, fillColor(opts.FillColor))
		for _, c := range contours {
			for _, t := range contour.Triangulate(c.Points) {
				dc.MoveTo(t.A.X, t.A.Y)
				dc.LineTo(t.B.X, t.B.Y)
				dc.LineTo(t.C.X, t.C.Y)
				dc.ClosePath()
				if err := dc.Fill(); err != nil {
					return nil, fmt.Errorf("fill triangle: %w", err)
				}
			}
		}
	}

	setColor(dc, lineColor(opts.LineColor))
	dc.SetLineWidth(opts.LineWidth)
	for _, c := range contours {
		if len(c.Points) < contour.MinPoints {
			continue
		}
		dc.MoveTo(c.Points[0].X, c.Points[0].Y)
		for _, p := range c.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke contour: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func lineColor(aci int) colorful.Color {
	if aci == dxf.ColorByBlock || aci == dxf.ColorWhite {
		return colorful.Color{}
	}
	return dxf.ACIColor(aci)
}

func fillColor(aci int) colorful.Color {
	if aci == dxf.ColorByBlock || aci == dxf.ColorWhite {
		return dxf.ACIColor(9)
	}
	return dxf.ACIColor(aci)
}

func setColor(dc *gg.Context, c colorful.Color) {
	dc.SetRGB(c.R, c.G, c.B)
}
