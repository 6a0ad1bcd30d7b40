// Package api is the client for the recognition service's request/response
// endpoints: face registration, transcription, memory storage and the
// read-only history listings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrInvalidInput is returned before any request is made when a required
// argument is missing.
var ErrInvalidInput = errors.New("api: invalid input")

// Error is a non-2xx reply from the service.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
}

// Client talks to the service's API origin.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// New creates a client for baseURL (e.g. http://localhost:8000).
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		log: log.With().Str("component", "api").Logger(),
	}
}

// Registration is the reply to RegisterFace.
type Registration struct {
	Status   string `json:"status"`
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

// RegisterFace associates name with the single face in imageBase64. The
// service rejects images with no detectable face.
func (c *Client) RegisterFace(ctx context.Context, name, imageBase64 string) (*Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if imageBase64 == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	var out Registration
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"name":         name,
			"image_base64": imageBase64,
		}).
		SetResult(&out).
		Post("/register-face")
	if err := check("register face", resp, err); err != nil {
		return nil, err
	}
	c.log.Info().Str("person_id", out.PersonID).Str("name", out.Name).Msg("Face registered")
	return &out, nil
}

// Transcribe uploads one finalized recording and returns its transcript. An
// empty transcript is a valid reply meaning no speech.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}

	var out struct {
		Transcript string `json:"transcript"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("audio", filename, bytes.NewReader(audio)).
		SetResult(&out).
		Post("/transcribe")
	if err := check("transcribe", resp, err); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Transcript), nil
}

// MemoryInput is one memory to persist. PersonID and ImageBase64 are
// optional; an empty PersonID stores the memory unattributed.
type MemoryInput struct {
	PersonID    string
	Transcript  string
	ImageBase64 string
}

// Summary is the service's digest of a stored conversation.
type Summary struct {
	Summary            string   `json:"summary"`
	KeyTopics          []string `json:"key_topics"`
	EmotionalTone      string   `json:"emotional_tone"`
	FollowUpSuggestion string   `json:"follow_up_suggestion,omitempty"`
}

// MemoryResult is the reply to AddMemory.
type MemoryResult struct {
	Status   string  `json:"status"`
	MemoryID string  `json:"memory_id"`
	Summary  Summary `json:"summary"`
}

// AddMemory persists one memory. The service timestamps it.
func (c *Client) AddMemory(ctx context.Context, in MemoryInput) (*MemoryResult, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is required", ErrInvalidInput)
	}

	form := map[string]string{"transcript": in.Transcript}
	if in.PersonID != "" {
		form["person_id"] = in.PersonID
	}
	if in.ImageBase64 != "" {
		form["image_base64"] = in.ImageBase64
	}

	var out MemoryResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetResult(&out).
		Post("/add-memory")
	if err := check("add memory", resp, err); err != nil {
		return nil, err
	}
	c.log.Info().Str("memory_id", out.MemoryID).Bool("attributed", in.PersonID != "").Msg("Memory stored")
	return &out, nil
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return &Error{Op: op, StatusCode: resp.StatusCode(), Detail: detail(resp.Body())}
	}
	return nil
}

// detail extracts the service's {"detail": ...} message. Validation errors
// carry a list there, which is returned as raw JSON.
func detail(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || len(e.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}
