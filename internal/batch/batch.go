// Package batch runs edge detection or DXF conversion over every image in a folder.
//
// Files are processed one at a time. A file that cannot be read, decoded or
// written is counted as failed and the run continues with the next one.
package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/pipeline"
	"github.com/ironsheep/raster2dxf/internal/storage"
)

// Extensions lists the input file extensions, matched case-insensitively.
var Extensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// NoImagesMessage is the summary message for a folder without images.
const NoImagesMessage = "no image files found"

// Summary reports the outcome of a run.
type Summary struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Total   int      `json:"total"`
	Message string   `json:"message"`
	Outputs []string `json:"outputs,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ProgressFunc is called before each file with its 1-based position.
type ProgressFunc func(current, total int, name string)

// Processor holds the settings of one run. The zero value is not usable; start
// from NewProcessor.
type Processor struct {
	Algorithm imaging.Algorithm
	Params    imaging.EdgeParams
	Invert    bool
	Suffix    string
	// Format is the output image format (png, jpg, bmp, tiff, gif).
	Format string

	// Convert switches the run from edge maps to DXF drawings produced with
	// this configuration. Output files then get the .dxf extension.
	Convert *pipeline.Config

	// Sink, if set, receives a copy of each output under its file name.
	Sink storage.Sink

	OnProgress ProgressFunc
}

// NewProcessor returns a Canny edge processor with the default parameters.
func NewProcessor() *Processor {
	return &Processor{
		Algorithm: imaging.Canny,
		Params:    imaging.DefaultEdgeParams(),
		Suffix:    "_edges",
		Format:    "png",
	}
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Run processes every image in inDir into outDir, creating outDir if needed.
func (p *Processor) Run(ctx context.Context, inDir, outDir string) (*Summary, error) {
	files, err := ListImages(inDir)
	if err != nil {
		return nil, err
	}
	return p.RunFiles(ctx, files, outDir)
}

// RunFiles processes the given files into outDir. It stops early, returning the
// partial summary and the context error, when ctx is cancelled.
func (p *Processor) RunFiles(ctx context.Context, files []string, outDir string) (*Summary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	sum := &Summary{Total: len(files)}
	if len(files) == 0 {
		sum.Message = NoImagesMessage
		return sum, nil
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			sum.Message = fmt.Sprintf("cancelled after %d of %d files", i, sum.Total)
			return sum, err
		}
		if p.OnProgress != nil {
			p.OnProgress(i+1, sum.Total, filepath.Base(path))
		}

		out, err := p.processFile(ctx, path, outDir)
		if err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			logger.WithFields(logrus.Fields{"file": path}).WithError(err).Warn("batch file failed")
			continue
		}
		sum.Success++
		sum.Outputs = append(sum.Outputs, out)
	}

	sum.Message = fmt.Sprintf("batch complete: %d succeeded, %d failed", sum.Success, sum.Failed)
	return sum, nil
}

// OutputName returns "<stem><suffix>.<ext>" for an input path.
func (p *Processor) OutputName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := imaging.OutputExtension(p.Format)
	if p.Convert != nil {
		ext = "dxf"
	}
	return stem + p.Suffix + "." + ext
}

func (p *Processor) processFile(ctx context.Context, path, outDir string) (string, error) {
	img, err := imaging.LoadFile(path)
	if err != nil {
		return "", err
	}

	data, err := p.render(img)
	if err != nil {
		return "", err
	}

	name := p.OutputName(path)
	dst := filepath.Join(outDir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}

	if p.Sink != nil {
		if _, err := p.Sink.Put(ctx, name, data); err != nil {
			return "", fmt.Errorf("failed to store output: %w", err)
		}
	}
	return dst, nil
}

func (p *Processor) render(img image.Image) ([]byte, error) {
	if p.Convert != nil {
		res, err := pipeline.ConvertImage(img, *p.Convert)
		if err != nil {
			return nil, err
		}
		return res.DXF, nil
	}

	edges, err := imaging.DetectEdges(img, p.Algorithm, p.Params)
	if err != nil {
		return nil, err
	}
	if p.Invert {
		edges = imaging.InvertGray(edges)
	}
	return imaging.EncodeImageBytes(edges, p.Format)
}
