package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Attribution strategies for finalized recordings.
const (
	AttributionSingle = "single"
	AttributionBest   = "best"
)

// Camera source kinds.
const (
	CameraFile = "file"
	CameraHTTP = "http"
)

type Config struct {
	LogLevel       string          `json:"log_level"`
	Hotkey         string          `json:"hotkey"`
	HotkeyDarwin   string          `json:"hotkey_darwin"`
	API            APIConfig       `json:"api"`
	Realtime       RealtimeConfig  `json:"realtime"`
	Camera         CameraConfig    `json:"camera"`
	Audio          AudioConfig     `json:"audio"`
	Sampler        SamplerConfig   `json:"sampler"`
	Recording      RecordingConfig `json:"recording"`
	ShowTranscript bool            `json:"show_transcript"`

	// mu guards the fields changed at runtime by SetDeviceID and
	// SetShowTranscript.
	mu sync.Mutex
}

type APIConfig struct {
	URL     string   `json:"url"` // API origin, e.g. http://localhost:8000
	Timeout Duration `json:"timeout"`
}

type RealtimeConfig struct {
	URL             string   `json:"url"` // realtime origin, e.g. ws://localhost:8000
	RecognitionPath string   `json:"recognition_path"`
	ListenPath      string   `json:"listen_path"`
	ReconnectDelay  Duration `json:"reconnect_delay"`
	WriteTimeout    Duration `json:"write_timeout"`
}

type CameraConfig struct {
	Source string `json:"source"` // "file" or "http"
	Path   string `json:"path"`
	URL    string `json:"url"`
}

type AudioConfig struct {
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
	BlockSize  int    `json:"block_size"`
	Channels   int    `json:"channels"`
}

type SamplerConfig struct {
	Interval Duration `json:"interval"`
}

type RecordingConfig struct {
	SilenceTimeout Duration `json:"silence_timeout"`
	ChunkInterval  Duration `json:"chunk_interval"`
	MinBytes       int      `json:"min_bytes"`
	VoiceThreshold float64  `json:"voice_threshold"` // RMS; 0 counts every chunk as speech
	Attribution    string   `json:"attribution"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		Hotkey:       "Ctrl+Alt+M",
		HotkeyDarwin: "Ctrl+Alt+M", // Control+Option+M
		API: APIConfig{
			URL:     "http://localhost:8000",
			Timeout: Duration(30 * time.Second),
		},
		Realtime: RealtimeConfig{
			URL:             "ws://localhost:8000",
			RecognitionPath: "/ws/recognition",
			ListenPath:      "/ws/listen",
			ReconnectDelay:  Duration(2 * time.Second),
			WriteTimeout:    Duration(5 * time.Second),
		},
		Camera: CameraConfig{
			Source: CameraFile,
			Path:   filepath.Join(os.TempDir(), "memorylens", "frame.jpg"),
		},
		Audio: AudioConfig{
			DeviceID:   "",
			SampleRate: 16000,
			BlockSize:  512,
			Channels:   1,
		},
		Sampler: SamplerConfig{
			Interval: Duration(300 * time.Millisecond),
		},
		Recording: RecordingConfig{
			SilenceTimeout: Duration(3 * time.Second),
			ChunkInterval:  Duration(500 * time.Millisecond),
			MinBytes:       1000,
			VoiceThreshold: 0.01,
			Attribution:    AttributionSingle,
		},
		ShowTranscript: true,
	}
}

// Load reads the config from disk, then applies .env and environment
// overrides. A missing config file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(configPath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the endpoint origins and log level from the environment.
// Each origin is overridable on its own.
func (c *Config) ApplyEnv() {
	c.API.URL = getEnv("MEMORYLENS_API_URL", c.API.URL)
	c.Realtime.URL = getEnv("MEMORYLENS_REALTIME_URL", c.Realtime.URL)
	c.LogLevel = getEnv("MEMORYLENS_LOG_LEVEL", c.LogLevel)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := checkOrigin(c.API.URL, "http", "https"); err != nil {
		return fmt.Errorf("api url: %w", err)
	}
	if err := checkOrigin(c.Realtime.URL, "ws", "wss"); err != nil {
		return fmt.Errorf("realtime url: %w", err)
	}
	if c.Sampler.Interval <= 0 {
		return fmt.Errorf("sampler interval must be positive")
	}
	if c.Realtime.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive")
	}
	if c.Recording.SilenceTimeout <= 0 || c.Recording.ChunkInterval <= 0 {
		return fmt.Errorf("recording timeouts must be positive")
	}
	if c.Audio.SampleRate <= 0 || c.Audio.BlockSize <= 0 || c.Audio.Channels <= 0 {
		return fmt.Errorf("invalid audio format %d Hz / %d frames / %d ch",
			c.Audio.SampleRate, c.Audio.BlockSize, c.Audio.Channels)
	}
	switch c.Recording.Attribution {
	case AttributionSingle, AttributionBest:
	default:
		return fmt.Errorf("unknown attribution strategy %q", c.Recording.Attribution)
	}
	switch c.Camera.Source {
	case CameraFile, CameraHTTP:
	default:
		return fmt.Errorf("unknown camera source %q", c.Camera.Source)
	}
	return nil
}

// RecognitionURL is the detection channel endpoint.
func (c *Config) RecognitionURL() string {
	return strings.TrimRight(c.Realtime.URL, "/") + c.Realtime.RecognitionPath
}

// ListenURL is the audio channel endpoint.
func (c *Config) ListenURL() string {
	return strings.TrimRight(c.Realtime.URL, "/") + c.Realtime.ListenPath
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// AudioDevice returns the selected microphone; empty means the system default.
func (c *Config) AudioDevice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Audio.DeviceID
}

// SetDeviceID selects the microphone and persists the choice.
func (c *Config) SetDeviceID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.DeviceID = id
	return c.saveLocked()
}

// SetShowTranscript toggles live captions and persists the choice.
func (c *Config) SetShowTranscript(show bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShowTranscript = show
	return c.saveLocked()
}

// TranscriptShown reports whether live captions are displayed.
func (c *Config) TranscriptShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ShowTranscript
}

// Save persists the settings changed from the tray: the microphone and the
// live transcript toggle. Every other key in the config file is left as it
// was on disk, so .env, environment and flag overrides never reach the file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// fileMu serializes read-modify-write cycles on the config file.
var fileMu sync.Mutex

func (c *Config) saveLocked() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	path := configPath()
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	audio, ok := doc["audio"].(map[string]any)
	if !ok {
		audio = map[string]any{}
	}
	audio["device_id"] = c.Audio.DeviceID
	doc["audio"] = audio
	doc["show_transcript"] = c.ShowTranscript

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Path returns the config file location.
func Path() string {
	return configPath()
}

func checkOrigin(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q: want %s://host[:port]", raw, strings.Join(schemes, " or "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "memorylens", "config.json")
}
