// Package transport serves the conversion pipeline over HTTP with gin.
package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster2dxf/internal/config"
	apperrors "github.com/ironsheep/raster2dxf/internal/errors"
	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/pipeline"
	"github.com/ironsheep/raster2dxf/internal/render"
	"github.com/ironsheep/raster2dxf/internal/storage"
)

const (
	// DownloadName is the attachment file name of /convert_dxf.
	DownloadName = "raster2dxf_vector.dxf"
	// DXFContentType is the MIME type of /convert_dxf.
	DXFContentType = "application/dxf"
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	imageField = "image"
	requestKey = "request_id"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ImageResponse carries a base64 PNG.
type ImageResponse struct {
	Status string          `json:"status"`
	Image  string          `json:"image"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Stats  *pipeline.Stats `json:"stats,omitempty"`
}

// Options configures NewHandler.
type Options struct {
	Server config.ServerConfig
	// Base holds the defaults that form fields override.
	Base pipeline.Config
	// Sink, if set, receives a copy of every generated DXF.
	Sink    storage.Sink
	Version string
}

type handler struct {
	opts Options
}

// NewHandler builds the gin engine with all routes and middleware.
func NewHandler(opts Options) http.Handler {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	h := &handler{opts: opts}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(opts.Server.MaxRequestBodySize),
	)

	r.GET("/health", h.healthCheck)
	r.POST("/process_preview", h.processPreview)
	r.POST("/convert_dxf", h.convertDXF)
	r.POST("/render_preview", h.renderPreview)

	return r
}

func (h *handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": h.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) processPreview(c *gin.Context) {
	data, cfg, ok := h.readRequest(c)
	if !ok {
		return
	}
	res, err := runWithTimeout(c.Request.Context(), h.opts.Server.RequestTimeout, func() (*pipeline.PreviewResult, error) {
		return pipeline.Preview(data, cfg)
	})
	if err != nil {
		respondError(c, "preview failed", err)
		return
	}
	c.JSON(http.StatusOK, ImageResponse{
		Status: "success",
		Image:  res.Base64(),
		Width:  res.Width,
		Height: res.Height,
	})
}

func (h *handler) convertDXF(c *gin.Context) {
	start := time.Now()
	data, cfg, ok := h.readRequest(c)
	if !ok {
		return
	}
	res, err := runWithTimeout(c.Request.Context(), h.opts.Server.RequestTimeout, func() (*pipeline.ConvertResult, error) {
		return pipeline.Convert(data, cfg)
	})
	if err != nil {
		respondError(c, "conversion failed", err)
		return
	}

	if h.opts.Sink != nil {
		loc, err := h.opts.Sink.Put(c.Request.Context(), c.GetString(requestKey)+".dxf", res.DXF)
		if err != nil {
			logger.WithError(err).WithField(requestKey, c.GetString(requestKey)).Warn("failed to store DXF copy")
		} else {
			c.Header("X-Stored-Location", loc)
		}
	}

	logger.WithFields(logrus.Fields{
		requestKey:           c.GetString(requestKey),
		"polylines":          res.Stats.Polylines,
		"solids":             res.Stats.Solids,
		"precision":          cfg.Refinement.String(),
		"processing_time_ms": time.Since(start).Milliseconds(),
	}).Info("DXF conversion completed")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadName))
	c.Header("X-Contour-Count", strconv.Itoa(res.Stats.Polylines))
	c.Data(http.StatusOK, DXFContentType, res.DXF)
}

func (h *handler) renderPreview(c *gin.Context) {
	data, cfg, ok := h.readRequest(c)
	if !ok {
		return
	}
	type rendered struct {
		res *pipeline.ConvertResult
		png []byte
	}
	out, err := runWithTimeout(c.Request.Context(), h.opts.Server.RequestTimeout, func() (*rendered, error) {
		res, err := pipeline.Convert(data, cfg)
		if err != nil {
			return nil, err
		}
		png, err := render.Contours(res.Width, res.Height, res.Contours, cfg.RenderOptions())
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to render contours", err)
		}
		return &rendered{res: res, png: png}, nil
	})
	if err != nil {
		respondError(c, "render failed", err)
		return
	}
	c.JSON(http.StatusOK, ImageResponse{
		Status: "success",
		Image:  base64.StdEncoding.EncodeToString(out.png),
		Width:  out.res.Width,
		Height: out.res.Height,
		Stats:  &out.res.Stats,
	})
}

// readRequest reads the uploaded image and applies the form fields to the base
// configuration. It writes the error response itself and reports false on failure.
func (h *handler) readRequest(c *gin.Context) ([]byte, pipeline.Config, bool) {
	fh, err := c.FormFile(imageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, "upload rejected", apperrors.NewTooLargeError(
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), err))
		} else {
			respondError(c, "upload rejected", apperrors.NewValidationError("no image uploaded", err))
		}
		return nil, pipeline.Config{}, false
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, "upload rejected", apperrors.NewIOError("failed to open upload", err))
		return nil, pipeline.Config{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, "upload rejected", apperrors.NewIOError("failed to read upload", err))
		return nil, pipeline.Config{}, false
	}

	cfg, err := h.opts.Base.WithParams(c.GetPostForm)
	if err != nil {
		respondError(c, "invalid parameters", err)
		return nil, pipeline.Config{}, false
	}
	return data, cfg, true
}

// runWithTimeout runs fn and gives up waiting after timeout. The pipeline has
// no cancellation points, so an abandoned fn finishes in the background.
func runWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout <= 0 {
		return safeCall(fn)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := safeCall(fn)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// safeCall runs fn and turns a panic into an internal AppError. gin's recovery
// middleware cannot see panics on the pipeline goroutine.
func safeCall[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Pipeline panicked")
			var zero T
			v, err = zero, apperrors.NewInternalError(fmt.Sprintf("pipeline failed: %v", r), nil)
		}
	}()
	return fn()
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	code := determineStatusCode(err)
	logger.WithError(err).WithFields(logrus.Fields{
		requestKey:    c.GetString(requestKey),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Status:    "error",
		Message:   fmt.Sprintf("%s: %v", message, err),
		RequestID: c.GetString(requestKey),
	})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			requestKey:           c.GetString(requestKey),
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"ip":                 c.ClientIP(),
			"processing_time_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
