package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/raster2dxf/internal/config"
	"github.com/ironsheep/raster2dxf/internal/contour"
	"github.com/ironsheep/raster2dxf/internal/dxf"
	apperrors "github.com/ironsheep/raster2dxf/internal/errors"
	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/render"
)

// FillMode selects the colour of fill triangles.
type FillMode int

const (
	FillNone FillMode = iota
	FillBlack
	FillWhite
)

// String returns the request form of f.
func (f FillMode) String() string {
	switch f {
	case FillBlack:
		return "black"
	case FillWhite:
		return "white"
	}
	return "none"
}

// Color returns the ACI index used for fill SOLIDs: 0 for black, 7 for white.
func (f FillMode) Color() int {
	if f == FillWhite {
		return dxf.ColorWhite
	}
	return dxf.ColorByBlock
}

// ParseFillMode accepts "none", "black" or "white" (case-insensitive). Empty means none.
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FillNone, nil
	case "black":
		return FillBlack, nil
	case "white":
		return FillWhite, nil
	}
	return FillNone, fmt.Errorf("unknown fill color %q (want none, black or white)", s)
}

// Config holds every parameter of one conversion. Methods return modified
// copies; a Config is never changed after it is handed to Preview or Convert.
type Config struct {
	Threshold     int
	Invert        bool
	SingleLine    bool
	Thinning      imaging.ThinStrategy
	IgnoreBorder  bool
	Fill          FillMode
	Refinement    contour.Refinement
	Approximation contour.Approximation
	DropFrame     bool
	LayerName     string
	LayerColor    int
	MaxWidth      int

	// Units is written as $INSUNITS (0..24).
	Units int
}

// DefaultConfig returns the built-in conversion defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:     128,
		Thinning:      imaging.ThinMorph,
		Fill:          FillNone,
		Refinement:    contour.Refinement{Kind: contour.RefineNone},
		Approximation: contour.ApproxNone,
		DropFrame:     true,
		LayerName:     "OUTLINE",
		LayerColor:    dxf.ColorWhite,
		MaxWidth:      imaging.MaxWidth,
	}
}

// FromSettings builds the base Config from loaded settings.
func FromSettings(p config.PipelineConfig) (Config, error) {
	cfg := DefaultConfig()
	cfg.Threshold = p.Threshold
	cfg.DropFrame = p.DropFrame
	cfg.LayerName = p.LayerName
	cfg.MaxWidth = p.MaxWidth
	cfg.Units = p.Units

	var err error
	if cfg.Thinning, err = imaging.ParseThinStrategy(p.Thinning); err != nil {
		return Config{}, err
	}
	if cfg.Approximation, err = contour.ParseApproximation(p.Approximation); err != nil {
		return Config{}, err
	}
	if cfg.LayerColor, err = p.LayerColorIndex(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first out-of-range field as a validation AppError.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 255 {
		return apperrors.NewValidationError(fmt.Sprintf("threshold must be in 0..255 (got %d)", c.Threshold), nil)
	}
	if c.Refinement.Kind == contour.RefineDensify &&
		(c.Refinement.Factor < 1 || c.Refinement.Factor > contour.MaxDensifyFactor) {
		return apperrors.NewValidationError(fmt.Sprintf("densify factor must be in 1..%d (got %d)",
			contour.MaxDensifyFactor, c.Refinement.Factor), nil)
	}
	if c.LayerColor < 1 || c.LayerColor > 255 {
		return apperrors.NewValidationError(fmt.Sprintf("layer color must be in 1..255 (got %d)", c.LayerColor), nil)
	}
	if strings.TrimSpace(c.LayerName) == "" {
		return apperrors.NewValidationError("layer name is required", nil)
	}
	if c.MaxWidth < 0 {
		return apperrors.NewValidationError("max width must not be negative", nil)
	}
	if c.Units < 0 || c.Units > dxf.MaxUnits {
		return apperrors.NewValidationError(fmt.Sprintf("units must be in 0..%d (got %d)", dxf.MaxUnits, c.Units), nil)
	}
	return nil
}

// RenderOptions styles a contour preview like the DXF: outlines in the layer
// colour and, when filling, triangles in the fill colour.
func (c Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.LineColor = c.LayerColor
	if c.Fill != FillNone {
		opts.Fill = true
		opts.FillColor = c.Fill.Color()
	}
	return opts
}

// Lookup fetches a named request parameter. It has the signature of
// gin.Context.GetPostForm.
type Lookup func(key string) (string, bool)

// Request parameter names shared by the HTTP form and the MCP tools.
const (
	ParamThreshold     = "threshold"
	ParamInvert        = "invert"
	ParamSingleLine    = "single_line"
	ParamIgnoreBorder  = "ignore_border"
	ParamFillColor     = "fill_color"
	ParamPrecision     = "precision"
	ParamThinning      = "thinning"
	ParamApproximation = "approximation"
	ParamDropFrame     = "drop_frame"
)

// WithParams returns a copy of c with every present parameter applied. Absent
// and empty parameters keep the value from c. Bad values produce a validation
// AppError naming the parameter.
func (c Config) WithParams(get Lookup) (Config, error) {
	out := c

	if v, ok := present(get, ParamThreshold); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, paramError(ParamThreshold, v, err)
		}
		out.Threshold = n
	}

	for _, b := range []struct {
		key string
		dst *bool
	}{
		{ParamInvert, &out.Invert},
		{ParamSingleLine, &out.SingleLine},
		{ParamIgnoreBorder, &out.IgnoreBorder},
		{ParamDropFrame, &out.DropFrame},
	} {
		if v, ok := present(get, b.key); ok {
			parsed, err := parseFlag(v)
			if err != nil {
				return c, paramError(b.key, v, err)
			}
			*b.dst = parsed
		}
	}

	if v, ok := present(get, ParamFillColor); ok {
		f, err := ParseFillMode(v)
		if err != nil {
			return c, paramError(ParamFillColor, v, err)
		}
		out.Fill = f
	}
	if v, ok := present(get, ParamPrecision); ok {
		r, err := contour.ParseRefinement(v)
		if err != nil {
			return c, paramError(ParamPrecision, v, err)
		}
		out.Refinement = r
	}
	if v, ok := present(get, ParamThinning); ok {
		s, err := imaging.ParseThinStrategy(v)
		if err != nil {
			return c, paramError(ParamThinning, v, err)
		}
		out.Thinning = s
	}
	if v, ok := present(get, ParamApproximation); ok {
		a, err := contour.ParseApproximation(v)
		if err != nil {
			return c, paramError(ParamApproximation, v, err)
		}
		out.Approximation = a
	}

	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// MapLookup adapts a string map to Lookup.
func MapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func present(get Lookup, key string) (string, bool) {
	if get == nil {
		return "", false
	}
	v, ok := get(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseFlag accepts strconv.ParseBool values plus the HTML checkbox forms.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func paramError(key, value string, cause error) error {
	return apperrors.NewValidationError(fmt.Sprintf("invalid %s %q", key, value), cause)
}

// binarizeOptions maps c onto the binarizer.
func (c Config) binarizeOptions() imaging.BinarizeOptions {
	return imaging.BinarizeOptions{
		Threshold:    c.Threshold,
		Invert:       c.Invert,
		AddBorder:    c.IgnoreBorder,
		Thin:         c.SingleLine,
		ThinStrategy: c.Thinning,
		MaxWidth:     c.MaxWidth,
	}
}
