// Package config loads raster2dxf settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then a .env
// file, then process environment variables. The result is validated once.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/raster2dxf/internal/contour"
	"github.com/ironsheep/raster2dxf/internal/dxf"
	"github.com/ironsheep/raster2dxf/internal/imaging"
)

// Config holds all settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Edges    EdgeConfig     `yaml:"edges"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
}

// ServerAddress returns host:port.
func (c *ServerConfig) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// PipelineConfig holds conversion defaults. Request parameters override the
// per-request fields; layer settings apply to every document.
type PipelineConfig struct {
	MaxWidth      int    `yaml:"max_width"`
	Threshold     int    `yaml:"threshold"`
	Thinning      string `yaml:"thinning"`
	Approximation string `yaml:"approximation"`
	DropFrame     bool   `yaml:"drop_frame"`
	LayerName     string `yaml:"layer_name"`
	LayerColor    string `yaml:"layer_color"`

	// Units is the DXF $INSUNITS code: 0 unitless, 1 inches, 4 millimeters.
	Units int `yaml:"units"`
}

// EdgeConfig holds edge detection defaults for the edges and batch commands.
type EdgeConfig struct {
	Algorithm string             `yaml:"algorithm"`
	Params    imaging.EdgeParams `yaml:"params"`
	Suffix    string             `yaml:"suffix"`
	Format    string             `yaml:"format"`
}

// StorageConfig selects where generated files are copied.
type StorageConfig struct {
	// Driver is "" (no upload), "local" or "azure".
	Driver   string      `yaml:"driver"`
	LocalDir string      `yaml:"local_dir"`
	Azure    AzureConfig `yaml:"azure"`
}

// AzureConfig holds Azure Blob Storage credentials.
type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	Container   string `yaml:"container"`
	// ServiceURL overrides https://<account>.blob.core.windows.net.
	ServiceURL string `yaml:"service_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "5000",
			RequestTimeout:     60 * time.Second,
			MaxRequestBodySize: 32 * 1024 * 1024,
		},
		Pipeline: PipelineConfig{
			MaxWidth:      imaging.MaxWidth,
			Threshold:     128,
			Thinning:      "morph",
			Approximation: "none",
			DropFrame:     true,
			LayerName:     "OUTLINE",
			LayerColor:    "7",
		},
		Edges: EdgeConfig{
			Algorithm: "Canny",
			Params:    imaging.DefaultEdgeParams(),
			Suffix:    "_edges",
			Format:    "png",
		},
		Storage: StorageConfig{
			LocalDir: "output",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is
// empty), the given .env files (".env" in the working directory when none are
// given; a missing default file is ignored) and the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv is Load without a YAML file.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.Server.MaxRequestBodySize)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.Server.RequestTimeout)
	}

	if c.Pipeline.MaxWidth < 1 {
		return fmt.Errorf("MAX_WIDTH must be > 0 (got %d)", c.Pipeline.MaxWidth)
	}
	if c.Pipeline.Threshold < 0 || c.Pipeline.Threshold > 255 {
		return fmt.Errorf("threshold must be in 0..255 (got %d)", c.Pipeline.Threshold)
	}
	if _, err := imaging.ParseThinStrategy(c.Pipeline.Thinning); err != nil {
		return err
	}
	if _, err := contour.ParseApproximation(c.Pipeline.Approximation); err != nil {
		return err
	}
	if _, err := c.Pipeline.LayerColorIndex(); err != nil {
		return fmt.Errorf("LAYER_COLOR: %w", err)
	}
	if err := dxf.New().AddLayer(c.Pipeline.LayerName, 7); err != nil {
		return fmt.Errorf("LAYER_NAME: %w", err)
	}

	if _, err := imaging.ParseAlgorithm(c.Edges.Algorithm); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case "":
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return fmt.Errorf("storage driver local needs a local_dir")
		}
	case "azure":
		a := c.Storage.Azure
		if a.AccountName == "" || a.AccountKey == "" || a.Container == "" {
			return fmt.Errorf("storage driver azure needs AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_STORAGE_CONTAINER")
		}
	default:
		return fmt.Errorf("invalid storage driver: %q (want local or azure)", c.Storage.Driver)
	}
	return nil
}

// LayerColorIndex parses LayerColor into an ACI index.
func (p PipelineConfig) LayerColorIndex() (int, error) {
	return dxf.ParseColor(p.LayerColor)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.Server.MaxRequestBodySize)

	cfg.Pipeline.MaxWidth = int(parseIntOrDefault("MAX_WIDTH", int64(cfg.Pipeline.MaxWidth)))
	cfg.Pipeline.LayerName = getEnvOrDefault("LAYER_NAME", cfg.Pipeline.LayerName)
	cfg.Pipeline.LayerColor = getEnvOrDefault("LAYER_COLOR", cfg.Pipeline.LayerColor)
	cfg.Pipeline.Approximation = getEnvOrDefault("CHAIN_APPROX", cfg.Pipeline.Approximation)
	cfg.Pipeline.Units = int(parseIntOrDefault("DXF_UNITS", int64(cfg.Pipeline.Units)))
	if v := os.Getenv("DROP_FRAME"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Pipeline.DropFrame = b
		}
	}

	cfg.Storage.Driver = getEnvOrDefault("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.LocalDir = getEnvOrDefault("OUTPUT_DIR", cfg.Storage.LocalDir)
	cfg.Storage.Azure.AccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.Storage.Azure.AccountName)
	cfg.Storage.Azure.AccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Storage.Azure.AccountKey)
	cfg.Storage.Azure.Container = getEnvOrDefault("AZURE_STORAGE_CONTAINER", cfg.Storage.Azure.Container)
	cfg.Storage.Azure.ServiceURL = getEnvOrDefault("AZURE_STORAGE_URL", cfg.Storage.Azure.ServiceURL)

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
