// Package storage copies generated files (DXF drawings, edge maps) to a
// destination outside the request: a local folder or an Azure Blob container.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/ironsheep/raster2dxf/internal/config"
)

// ErrInvalidName is returned for empty names or names escaping the destination.
var ErrInvalidName = errors.New("invalid object name")

// Sink stores named blobs of output.
type Sink interface {
	// Put stores data under name and returns where it ended up.
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// New returns the sink selected by cfg.Driver, or nil when no driver is set.
func New(cfg config.StorageConfig) (Sink, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "local":
		return NewLocalSink(cfg.LocalDir)
	case "azure":
		return NewAzureSink(cfg.Azure)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(filepath.ToSlash(name))
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// LocalSink writes files below a directory.
type LocalSink struct {
	dir string
}

// NewLocalSink creates dir if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local sink needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

// Put writes data to dir/name, creating subdirectories.
func (s *LocalSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}

// AzureSink uploads block blobs into one container.
type AzureSink struct {
	client    *azblob.Client
	container string
	baseURL   string
}

// NewAzureSink authenticates with the account's shared key.
func NewAzureSink(cfg config.AzureConfig) (*AzureSink, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	serviceURL = strings.TrimRight(serviceURL, "/")

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL+"/", credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return &AzureSink{client: client, container: cfg.Container, baseURL: serviceURL}, nil
}

// Put uploads data as a block blob and returns its URL.
func (s *AzureSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, clean, data, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return s.baseURL + "/" + s.container + "/" + clean, nil
}
