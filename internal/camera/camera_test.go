package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/memorylens/internal/config"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestFileSourceNotReady(t *testing.T) {
	dir := t.TempDir()
	src := &FileSource{Path: filepath.Join(dir, "frame.jpg")}

	_, err := src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, os.WriteFile(src.Path, nil, 0644))
	_, err = src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	full := testJPEG(t)
	require.NoError(t, os.WriteFile(src.Path, full[:len(full)/3], 0644))
	_, err = src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestFileSourceReadsStill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	img := testJPEG(t)
	require.NoError(t, os.WriteFile(path, img, 0644))

	got, err := (&FileSource{Path: path}).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestHTTPSource(t *testing.T) {
	img := testJPEG(t)
	var ready atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(img)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/snapshot.jpg", time.Second)

	_, err := src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	ready.Store(true)
	got, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestNewSelectsSource(t *testing.T) {
	src, err := New(config.CameraConfig{Source: config.CameraFile, Path: "/tmp/x.jpg"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	src, err = New(config.CameraConfig{Source: config.CameraHTTP, URL: "http://cam/snap"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	_, err = New(config.CameraConfig{Source: config.CameraHTTP}, time.Second)
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	img := testJPEG(t)
	url := DataURL(img)

	require.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
}
