// Package camera provides still-image snapshots of the operator's camera.
package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/petems/memorylens/internal/config"
)

// ErrNotReady means no frame is available yet. Callers treat it as a skipped
// frame, not a failure.
var ErrNotReady = errors.New("camera: no frame available")

// Source returns the current frame as a compressed still image.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// New builds the source selected by cfg.
func New(cfg config.CameraConfig, timeout time.Duration) (Source, error) {
	switch cfg.Source {
	case config.CameraFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("camera: file source needs a path")
		}
		return &FileSource{Path: cfg.Path}, nil
	case config.CameraHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("camera: http source needs a url")
		}
		return NewHTTPSource(cfg.URL, timeout), nil
	}
	return nil, fmt.Errorf("camera: unknown source %q", cfg.Source)
}

// FileSource reads the latest still written by an external capture process.
type FileSource struct {
	Path string
}

func (f *FileSource) Snapshot(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	return checkImage(data)
}

// HTTPSource fetches stills from a snapshot endpoint, such as an IP camera.
type HTTPSource struct {
	client *resty.Client
	url    string
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

func (h *HTTPSource) Snapshot(ctx context.Context) ([]byte, error) {
	resp, err := h.client.R().SetContext(ctx).Get(h.url)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return checkImage(resp.Body())
	case http.StatusNotFound, http.StatusServiceUnavailable, http.StatusNoContent:
		return nil, ErrNotReady
	}
	return nil, fmt.Errorf("camera: snapshot HTTP %d", resp.StatusCode())
}

var (
	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

// checkImage rejects empty or torn stills (a writer may be mid-update).
func checkImage(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNotReady
	}
	if bytes.HasPrefix(data, jpegSOI) {
		if !bytes.HasSuffix(data, jpegEOI) {
			return nil, ErrNotReady
		}
		return data, nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, ErrNotReady
	}
	return data, nil
}

// DataURL encodes an image as a base64 data URL.
func DataURL(img []byte) string {
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}
