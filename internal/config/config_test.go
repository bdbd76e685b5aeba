package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyEnv writes an empty .env file so Load never picks up a stray one from the
// working directory.
func emptyEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.ServerAddress())
	assert.Equal(t, 2000, cfg.Pipeline.MaxWidth)
	assert.True(t, cfg.Pipeline.DropFrame)

	idx, err := cfg.Pipeline.LayerColorIndex()
	require.NoError(t, err)
	assert.Equal(t, 7, idx)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raster2dxf.yaml")
	yamlDoc := `
server:
  port: "8080"
  request_timeout: 30s
pipeline:
  threshold: 90
  layer_name: CUT
  layer_color: "#FF0000"
  drop_frame: false
edges:
  algorithm: sobel
  params:
    blur_kernel: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	cfg, err := Load(path, emptyEnv(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 90, cfg.Pipeline.Threshold)
	assert.Equal(t, "CUT", cfg.Pipeline.LayerName)
	assert.False(t, cfg.Pipeline.DropFrame)
	assert.Equal(t, "sobel", cfg.Edges.Algorithm)
	assert.Equal(t, 5, cfg.Edges.Params.BlurKernel)
	assert.Equal(t, 100, cfg.Edges.Params.CannyLow, "unset params keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)

	idx, err := cfg.Pipeline.LayerColorIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("MAX_WIDTH", "800")
	t.Setenv("LAYER_NAME", "PROFILE")
	t.Setenv("DROP_FRAME", "false")
	t.Setenv("DXF_UNITS", "4")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")

	cfg, err := Load(path, emptyEnv(t))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 800, cfg.Pipeline.MaxWidth)
	assert.Equal(t, "PROFILE", cfg.Pipeline.LayerName)
	assert.False(t, cfg.Pipeline.DropFrame)
	assert.Equal(t, 4, cfg.Pipeline.Units)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout, "unparseable duration keeps the default")
}

func TestDotEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("LAYER_COLOR=3\nLOG_FORMAT=text\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LAYER_COLOR")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "3", cfg.Pipeline.LayerColor)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), emptyEnv(t))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unterminated"), 0o600))
	_, err = Load(bad, emptyEnv(t))
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err, "an explicitly named env file must exist")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port not numeric", func(c *Config) { c.Server.Port = "http" }},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }},
		{"zero body size", func(c *Config) { c.Server.MaxRequestBodySize = 0 }},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"zero max width", func(c *Config) { c.Pipeline.MaxWidth = 0 }},
		{"threshold too high", func(c *Config) { c.Pipeline.Threshold = 256 }},
		{"unknown thinning", func(c *Config) { c.Pipeline.Thinning = "erode" }},
		{"unknown approximation", func(c *Config) { c.Pipeline.Approximation = "tc89" }},
		{"layer color out of range", func(c *Config) { c.Pipeline.LayerColor = "300" }},
		{"empty layer name", func(c *Config) { c.Pipeline.LayerName = "" }},
		{"unknown edge algorithm", func(c *Config) { c.Edges.Algorithm = "roberts" }},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "s3" }},
		{"azure without key", func(c *Config) {
			c.Storage.Driver = "azure"
			c.Storage.Azure.AccountName = "acct"
			c.Storage.Azure.Container = "dxf"
		}},
		{"local without dir", func(c *Config) {
			c.Storage.Driver = "local"
			c.Storage.LocalDir = " "
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
