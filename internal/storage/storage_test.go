package storage

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/raster2dxf/internal/config"
)

func TestLocalSink_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewLocalSink(dir)
	require.NoError(t, err)

	loc, err := sink.Put(context.Background(), "drawings/part.dxf", []byte("0\nEOF\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "drawings", "part.dxf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "0\nEOF\n", string(data))
}

func TestLocalSink_RejectsBadNames(t *testing.T) {
	sink, err := NewLocalSink(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", " ", "../escape.dxf", "a/../../b.dxf", "a//b.dxf"} {
		_, err := sink.Put(context.Background(), name, nil)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestLocalSink_CancelledContext(t *testing.T) {
	sink, err := NewLocalSink(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.Put(ctx, "x.dxf", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	sink, err := New(config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = New(config.StorageConfig{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalSink{}, sink)

	_, err = New(config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Driver: "azure", Azure: config.AzureConfig{
		AccountName: "acct", AccountKey: "not base64!", Container: "c",
	}})
	assert.Error(t, err, "shared keys must be base64")
}

func TestAzureSink_Put(t *testing.T) {
	var (
		method, path, blobType string
		body                   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		blobType = r.Header.Get("x-ms-blob-type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink, err := NewAzureSink(config.AzureConfig{
		AccountName: "devstore",
		AccountKey:  base64.StdEncoding.EncodeToString([]byte("secret")),
		Container:   "drawings",
		ServiceURL:  srv.URL + "/devstore",
	})
	require.NoError(t, err)

	loc, err := sink.Put(context.Background(), "part.dxf", []byte("0\nEOF\n"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/devstore/drawings/part.dxf", path)
	assert.Equal(t, "BlockBlob", blobType)
	assert.Equal(t, "0\nEOF\n", string(body))
	assert.Equal(t, srv.URL+"/devstore/drawings/part.dxf", loc)
}
