// Package pipeline ties the binarizer, contour extractor, refiner, triangulator
// and DXF writer into the two request operations: Preview and Convert.
//
// Both take the encoded image bytes and a Config value. Neither keeps state
// between calls, so they are safe to run concurrently.
package pipeline

import (
	"encoding/base64"
	"errors"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster2dxf/internal/contour"
	"github.com/ironsheep/raster2dxf/internal/dxf"
	apperrors "github.com/ironsheep/raster2dxf/internal/errors"
	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/logger"
)

// PreviewResult is a binarized image ready for display.
type PreviewResult struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"-"`
}

// Base64 returns the PNG as standard base64 text.
func (r *PreviewResult) Base64() string {
	return base64.StdEncoding.EncodeToString(r.PNG)
}

// Stats counts what each stage of Convert kept.
type Stats struct {
	// Traced is the number of borders the extractor reported.
	Traced int `json:"traced"`
	// Frames is the number of frame borders dropped.
	Frames int `json:"frames_dropped"`
	// Degenerate is the number of borders dropped for having fewer than 3 points.
	Degenerate int `json:"degenerate_dropped"`
	// Holes is the number of written contours that are hole borders.
	Holes int `json:"holes"`

	Polylines int `json:"polylines"`
	Solids    int `json:"solids"`
	// Vertices is the total vertex count of the written polylines.
	Vertices int `json:"vertices"`
}

// ConvertResult is the output of Convert.
type ConvertResult struct {
	DXF []byte `json:"-"`
	// Width and Height are the mask dimensions, the coordinate space of Contours.
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Contours []contour.Contour `json:"-"`
	Stats    Stats             `json:"stats"`
	Config   Config            `json:"-"`
}

// Preview decodes data, binarizes it with cfg and returns the mask as PNG.
func Preview(data []byte, cfg Config) (*PreviewResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return preview(img, cfg)
}

// PreviewImage is Preview for an already decoded image.
func PreviewImage(img image.Image, cfg Config) (*PreviewResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return preview(img, cfg)
}

func preview(img image.Image, cfg Config) (*PreviewResult, error) {
	mask := imaging.Binarize(img, cfg.binarizeOptions())
	png, err := imaging.EncodePNG(mask.Gray())
	if err != nil {
		return nil, apperrors.NewIOError("failed to encode preview", err)
	}
	return &PreviewResult{Width: mask.Width, Height: mask.Height, PNG: png}, nil
}

// Convert runs the full vectorization and returns the DXF document.
//
// Every border found in the mask becomes one closed LWPOLYLINE on cfg.LayerName,
// except frame borders (when cfg.DropFrame is set) and borders with fewer than
// three points. With a fill mode, the fan triangles of each contour are written
// as SOLIDs ahead of its polyline. An image without contours yields a valid,
// empty drawing.
func Convert(data []byte, cfg Config) (*ConvertResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return convert(img, cfg)
}

// ConvertImage is Convert for an already decoded image.
func ConvertImage(img image.Image, cfg Config) (*ConvertResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return convert(img, cfg)
}

func convert(img image.Image, cfg Config) (*ConvertResult, error) {
	mask := imaging.Binarize(img, cfg.binarizeOptions())
	res := &ConvertResult{Width: mask.Width, Height: mask.Height, Config: cfg}
	contours := trace(mask, cfg, &res.Stats)

	res.Contours = make([]contour.Contour, 0, len(contours))
	for _, c := range contours {
		refined := c
		refined.Points = contour.Refine(c.Points, cfg.Refinement)
		if len(refined.Points) < contour.MinPoints {
			continue
		}
		res.Contours = append(res.Contours, refined)
	}

	doc, err := buildDocument(res.Contours, cfg)
	if err != nil {
		return nil, err
	}
	res.Stats.Polylines = doc.Count("LWPOLYLINE")
	res.Stats.Solids = doc.Count("SOLID")
	res.Stats.Vertices = contour.TotalPoints(res.Contours)
	for _, c := range res.Contours {
		if c.Hole {
			res.Stats.Holes++
		}
	}

	res.DXF, err = doc.Bytes()
	if err != nil {
		return nil, apperrors.NewIOError("failed to serialize DXF", err)
	}

	logger.WithFields(logrus.Fields{
		"traced":    res.Stats.Traced,
		"polylines": res.Stats.Polylines,
		"solids":    res.Stats.Solids,
		"vertices":  res.Stats.Vertices,
		"precision": cfg.Refinement.String(),
		"fill":      cfg.Fill.String(),
		"bytes":     len(res.DXF),
	}).Debug("converted image to DXF")
	return res, nil
}

func decode(data []byte) (image.Image, error) {
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		if errors.Is(err, imaging.ErrEmptyInput) {
			return nil, apperrors.NewValidationError("no image data", err)
		}
		return nil, apperrors.NewDecodeError("could not decode image", err)
	}
	return img, nil
}

// trace extracts and filters the borders of mask.
func trace(mask *imaging.Mask, cfg Config, st *Stats) []contour.Contour {
	contours := contour.Extract(mask, cfg.Approximation)
	st.Traced = len(contours)

	if cfg.DropFrame {
		kept := contour.DropFrame(contours, mask.Width, mask.Height)
		st.Frames = len(contours) - len(kept)
		contours = kept
	}

	kept := contour.FilterDegenerate(contours)
	st.Degenerate = len(contours) - len(kept)
	return kept
}

func buildDocument(contours []contour.Contour, cfg Config) (*dxf.Document, error) {
	doc := dxf.New()
	doc.SetUnits(cfg.Units)
	if err := doc.AddLayer(cfg.LayerName, cfg.LayerColor); err != nil {
		return nil, apperrors.NewValidationError("invalid layer", err)
	}

	for _, c := range contours {
		if cfg.Fill != FillNone {
			for _, t := range contour.Triangulate(c.Points) {
				if err := doc.AddTriangle(cfg.LayerName, cfg.Fill.Color(),
					toDXF(t.A), toDXF(t.B), toDXF(t.C)); err != nil {
					return nil, apperrors.NewProcessingError("failed to add fill", err)
				}
			}
		}
		if err := doc.AddPolyline(cfg.LayerName, toDXFPoints(c.Points), true); err != nil {
			return nil, apperrors.NewProcessingError("failed to add polyline", err)
		}
	}
	return doc, nil
}

func toDXF(p contour.Point) dxf.Point {
	return dxf.Point{X: p.X, Y: p.Y}
}

func toDXFPoints(points []contour.Point) []dxf.Point {
	out := make([]dxf.Point, len(points))
	for i, p := range points {
		out[i] = toDXF(p)
	}
	return out
}
