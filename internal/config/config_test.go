package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("config path override is exercised on linux only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("MEMORYLENS_API_URL", "")
	t.Setenv("MEMORYLENS_REALTIME_URL", "")
	t.Setenv("MEMORYLENS_LOG_LEVEL", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	useTempConfigDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.URL)
	assert.Equal(t, "ws://localhost:8000/ws/recognition", cfg.RecognitionURL())
	assert.Equal(t, "ws://localhost:8000/ws/listen", cfg.ListenURL())
	assert.Equal(t, 2*time.Second, cfg.Realtime.ReconnectDelay.D())
	assert.Equal(t, 3*time.Second, cfg.Recording.SilenceTimeout.D())
	assert.Equal(t, 1000, cfg.Recording.MinBytes)
	assert.Equal(t, AttributionSingle, cfg.Recording.Attribution)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := useTempConfigDir(t)

	path := filepath.Join(dir, "memorylens", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"sampler": {"interval": "1.5s"},
		"realtime": {"url": "ws://recognizer:9000/"}
	}`), 0644))

	t.Setenv("MEMORYLENS_API_URL", "https://api.example.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Sampler.Interval.D())
	assert.Equal(t, "https://api.example.test", cfg.API.URL)
	// the realtime origin keeps the file value; only the API origin was overridden
	assert.Equal(t, "ws://recognizer:9000/ws/recognition", cfg.RecognitionURL())
}

func TestSaveKeepsOverridesOutOfFile(t *testing.T) {
	dir := useTempConfigDir(t)

	path := filepath.Join(dir, "memorylens", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"recording": {"attribution": "best"},
		"audio": {"sample_rate": 48000}
	}`), 0644))

	t.Setenv("MEMORYLENS_REALTIME_URL", "ws://staging:8000")
	t.Setenv("MEMORYLENS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://staging:8000", cfg.Realtime.URL)

	// flag overrides land on the runtime config only
	cfg.API.URL = "http://flag:9000"
	require.NoError(t, cfg.SetDeviceID("usb"))
	require.NoError(t, cfg.SetShowTranscript(false))

	t.Setenv("MEMORYLENS_REALTIME_URL", "")
	t.Setenv("MEMORYLENS_LOG_LEVEL", "")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000", loaded.Realtime.URL)
	assert.Equal(t, "http://localhost:8000", loaded.API.URL)
	assert.Equal(t, "info", loaded.LogLevel)
	assert.Equal(t, "usb", loaded.AudioDevice())
	assert.False(t, loaded.TranscriptShown())
	assert.Equal(t, AttributionBest, loaded.Recording.Attribution)
	assert.Equal(t, 48000, loaded.Audio.SampleRate)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "staging")
	assert.NotContains(t, string(data), "log_level")
}

func TestSaveCreatesFile(t *testing.T) {
	useTempConfigDir(t)

	cfg := Default()
	cfg.Recording.Attribution = AttributionBest
	require.NoError(t, cfg.SetDeviceID("built-in"))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "built-in", loaded.AudioDevice())
	assert.True(t, loaded.TranscriptShown())
	// only the tray-managed settings are written
	assert.Equal(t, AttributionSingle, loaded.Recording.Attribution)
}

func TestConcurrentSettingChanges(t *testing.T) {
	useTempConfigDir(t)

	cfg := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.SetDeviceID("usb"))
		}()
		go func(show bool) {
			defer wg.Done()
			assert.NoError(t, cfg.SetShowTranscript(show))
		}(i%2 == 0)
	}
	wg.Wait()

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "usb", loaded.AudioDevice())
	assert.Equal(t, cfg.TranscriptShown(), loaded.TranscriptShown())
}

func TestPlatformHotkey(t *testing.T) {
	cfg := Default()
	cfg.Hotkey = "Ctrl+Shift+L"
	cfg.HotkeyDarwin = "Cmd+Shift+L"

	if runtime.GOOS == "darwin" {
		assert.Equal(t, "Cmd+Shift+L", cfg.PlatformHotkey())
	} else {
		assert.Equal(t, "Ctrl+Shift+L", cfg.PlatformHotkey())
	}

	cfg.HotkeyDarwin = ""
	assert.Equal(t, "Ctrl+Shift+L", cfg.PlatformHotkey())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad api scheme", func(c *Config) { c.API.URL = "ws://localhost:8000" }},
		{"bad realtime scheme", func(c *Config) { c.Realtime.URL = "http://localhost:8000" }},
		{"zero interval", func(c *Config) { c.Sampler.Interval = 0 }},
		{"zero reconnect delay", func(c *Config) { c.Realtime.ReconnectDelay = 0 }},
		{"unknown attribution", func(c *Config) { c.Recording.Attribution = "loudest" }},
		{"unknown camera", func(c *Config) { c.Camera.Source = "v4l2" }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"250ms"`)))
	assert.Equal(t, 250*time.Millisecond, d.D())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000`)))
	assert.Equal(t, time.Millisecond, d.D())

	out, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}
