package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster2dxf/internal/batch"
	"github.com/ironsheep/raster2dxf/internal/dxf"
	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/pipeline"
	"github.com/ironsheep/raster2dxf/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_vectorize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		logger.WithFields(logrus.Fields{"tool": params.Name}).WithError(err).Warn("tool call failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
// A panicking tool is reported as a tool error so the server keeps running.
func (s *Server) executeTool(name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"tool": name, "panic": r}).Error("tool panicked")
			result, err = nil, fmt.Errorf("tool %s failed: %v", name, r)
		}
	}()
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_binarize_preview":
		return s.handleBinarizePreview(args)
	case "image_vectorize":
		return s.handleVectorize(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)
	case "image_batch_edges":
		return s.handleBatchEdges(args)
	case "dxf_inspect":
		return s.handleDXFInspect(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"path":   a.Path,
		"cached": s.cache.Len(),
	}).Debug("image loaded")
	return info, nil
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Vectorization Handlers ===

// conversionArgs are the optional conversion arguments. Nil pointers and empty
// strings leave the server default in place.
type conversionArgs struct {
	Path          string `json:"path"`
	Threshold     *int   `json:"threshold"`
	Invert        *bool  `json:"invert"`
	SingleLine    *bool  `json:"single_line"`
	Thinning      string `json:"thinning"`
	IgnoreBorder  *bool  `json:"ignore_border"`
	FillColor     string `json:"fill_color"`
	Precision     string `json:"precision"`
	Approximation string `json:"approximation"`
	DropFrame     *bool  `json:"drop_frame"`
}

// params flattens the arguments into the form representation understood by
// pipeline.Config.WithParams.
func (a conversionArgs) params() map[string]string {
	m := map[string]string{
		pipeline.ParamThinning:      a.Thinning,
		pipeline.ParamFillColor:     a.FillColor,
		pipeline.ParamPrecision:     a.Precision,
		pipeline.ParamApproximation: a.Approximation,
	}
	if a.Threshold != nil {
		m[pipeline.ParamThreshold] = strconv.Itoa(*a.Threshold)
	}
	for key, v := range map[string]*bool{
		pipeline.ParamInvert:       a.Invert,
		pipeline.ParamSingleLine:   a.SingleLine,
		pipeline.ParamIgnoreBorder: a.IgnoreBorder,
		pipeline.ParamDropFrame:    a.DropFrame,
	} {
		if v != nil {
			m[key] = strconv.FormatBool(*v)
		}
	}
	return m
}

func (s *Server) config(a conversionArgs) (pipeline.Config, error) {
	return s.base.WithParams(pipeline.MapLookup(a.params()))
}

// BinarizePreviewResult is the result of image_binarize_preview.
type BinarizePreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleBinarizePreview(args json.RawMessage) (interface{}, error) {
	var a conversionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.config(a)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.PreviewImage(img, cfg)
	if err != nil {
		return nil, err
	}
	return &BinarizePreviewResult{
		Width:       res.Width,
		Height:      res.Height,
		ImageBase64: res.Base64(),
		MimeType:    "image/png",
	}, nil
}

type vectorizeArgs struct {
	conversionArgs
	OutputPath    string `json:"output_path"`
	RenderPreview bool   `json:"render_preview"`
}

// VectorizeResult is the result of image_vectorize.
type VectorizeResult struct {
	OutputPath     string         `json:"output_path"`
	StoredLocation string         `json:"stored_location,omitempty"`
	Bytes          int            `json:"bytes"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Precision      string         `json:"precision"`
	Fill           string         `json:"fill"`
	Stats          pipeline.Stats `json:"stats"`
	PreviewBase64  string         `json:"preview_base64,omitempty"`
}

func (s *Server) handleVectorize(args json.RawMessage) (interface{}, error) {
	var a vectorizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.config(a.conversionArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.ConvertImage(img, cfg)
	if err != nil {
		return nil, err
	}

	out := a.OutputPath
	if out == "" {
		out = strings.TrimSuffix(a.Path, filepath.Ext(a.Path)) + ".dxf"
	}
	if err := os.WriteFile(out, res.DXF, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write DXF: %w", err)
	}

	result := &VectorizeResult{
		OutputPath: out,
		Bytes:      len(res.DXF),
		Width:      res.Width,
		Height:     res.Height,
		Precision:  cfg.Refinement.String(),
		Fill:       cfg.Fill.String(),
		Stats:      res.Stats,
	}

	if s.sink != nil {
		loc, err := s.sink.Put(context.Background(), filepath.Base(out), res.DXF)
		if err != nil {
			return nil, fmt.Errorf("failed to store DXF: %w", err)
		}
		result.StoredLocation = loc
	}

	if a.RenderPreview {
		png, err := render.Contours(res.Width, res.Height, res.Contours, cfg.RenderOptions())
		if err != nil {
			return nil, err
		}
		result.PreviewBase64 = base64.StdEncoding.EncodeToString(png)
	}
	return result, nil
}

// === Edge Detection Handlers ===

type edgeArgs struct {
	Algorithm  string `json:"algorithm"`
	BlurKernel *int   `json:"blur_kernel"`
	CannyLow   *int   `json:"canny_low"`
	CannyHigh  *int   `json:"canny_high"`
	KSize      *int   `json:"ksize"`
	Invert     bool   `json:"invert"`
}

// resolve applies the arguments to the server defaults.
func (a edgeArgs) resolve(base imaging.EdgeParams) (imaging.Algorithm, imaging.EdgeParams, error) {
	alg := imaging.Canny
	if a.Algorithm != "" {
		var err error
		if alg, err = imaging.ParseAlgorithm(a.Algorithm); err != nil {
			return alg, base, err
		}
	}
	p := base
	if a.BlurKernel != nil {
		p.BlurKernel = *a.BlurKernel
	}
	if a.CannyLow != nil {
		p.CannyLow = *a.CannyLow
	}
	if a.CannyHigh != nil {
		p.CannyHigh = *a.CannyHigh
	}
	if a.KSize != nil {
		p.SobelKSize = *a.KSize
		p.LaplacianKSize = *a.KSize
	}
	return alg, p.Normalized(), nil
}

type imageEdgeDetectArgs struct {
	edgeArgs
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	alg, params, err := a.resolve(s.edges)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := imaging.EdgeDetect(img, alg, params, a.Invert)
	if err != nil {
		return nil, err
	}

	if a.OutputPath != "" {
		if err := saveEdges(img, alg, params, a.Invert, a.OutputPath); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// saveEdges writes the edge map to path in the format its extension names.
func saveEdges(img image.Image, alg imaging.Algorithm, params imaging.EdgeParams, invert bool, path string) error {
	edges, err := imaging.DetectEdges(img, alg, params)
	if err != nil {
		return err
	}
	if invert {
		edges = imaging.InvertGray(edges)
	}
	data, err := imaging.EncodeImageBytes(edges, filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save edge image: %w", err)
	}
	return nil
}

type batchEdgesArgs struct {
	edgeArgs
	InputDir  string  `json:"input_dir"`
	OutputDir string  `json:"output_dir"`
	Format    string  `json:"format"`
	Suffix    *string `json:"suffix"`
	Mode      string  `json:"mode"`
}

func (s *Server) handleBatchEdges(args json.RawMessage) (interface{}, error) {
	var a batchEdgesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.InputDir == "" || a.OutputDir == "" {
		return nil, fmt.Errorf("input_dir and output_dir are required")
	}

	p := batch.NewProcessor()
	alg, params, err := a.resolve(s.edges)
	if err != nil {
		return nil, err
	}
	p.Algorithm, p.Params, p.Invert = alg, params, a.Invert
	if a.Format != "" {
		p.Format = a.Format
	}
	if a.Suffix != nil {
		p.Suffix = *a.Suffix
	}

	switch a.Mode {
	case "", "edges":
	case "dxf":
		cfg := s.base
		p.Convert = &cfg
		if a.Suffix == nil {
			p.Suffix = ""
		}
	default:
		return nil, fmt.Errorf("unknown mode %q (want edges or dxf)", a.Mode)
	}

	p.OnProgress = func(current, total int, name string) {
		logger.WithFields(logrus.Fields{"current": current, "total": total, "file": name}).Debug("batch progress")
	}
	return p.Run(context.Background(), a.InputDir, a.OutputDir)
}

// === Inspection Handlers ===

type dxfInspectArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleDXFInspect(args json.RawMessage) (interface{}, error) {
	var a dxfInspectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DXF: %w", err)
	}
	defer f.Close()

	d, err := dxf.Parse(f)
	if err != nil {
		return nil, err
	}
	return d.Summary(), nil
}
