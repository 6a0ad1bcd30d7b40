package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("APPDATA", dir)
	t.Setenv("MEMORYLENS_API_URL", "")
	t.Setenv("MEMORYLENS_REALTIME_URL", "")
	t.Setenv("MEMORYLENS_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		apiURL, realtimeURL = "", ""
		outputJSON = false
		registerName, registerImage = "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	version, commit = "1.2.3", "abc123"
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "memorylens 1.2.3 (abc123)\n", out)
}

func TestInvalidOriginFlagRejected(t *testing.T) {
	isolate(t)
	_, err := execute(t, "people", "--api-url", "ftp://example.com")
	assert.ErrorContains(t, err, "api url")
}

func TestPeopleJSON(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"p1","name":"Ada","created_at":"2024-03-01T10:00:00"}]`))
	}))
	defer srv.Close()

	out, err := execute(t, "people", "--json", "--api-url", srv.URL)
	require.NoError(t, err)

	var people []api.Person
	require.NoError(t, json.Unmarshal([]byte(out), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "Ada", people[0].Name)
}

func TestMemoriesRequiresPersonID(t *testing.T) {
	isolate(t)
	_, err := execute(t, "memories")
	assert.Error(t, err)
}

func TestRegisterFromImage(t *testing.T) {
	isolate(t)
	img := filepath.Join(t.TempDir(), "ada.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0xFF, 0xD9}, 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ada", r.FormValue("name"))
		assert.Contains(t, r.FormValue("image_base64"), "data:image/jpeg;base64,")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","person_id":"p1","name":"Ada"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "register", "--name", "Ada", "--image", img, "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Registered Ada (p1)\n", out)
}

func TestRegisterRequiresName(t *testing.T) {
	isolate(t)
	img := filepath.Join(t.TempDir(), "ada.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0xFF, 0xD9}, 0o644))

	_, err := execute(t, "register", "--image", img)
	assert.ErrorIs(t, err, api.ErrInvalidInput)
}

func TestRegisterHotkeyDegradesGracefully(t *testing.T) {
	prevCfg, prevLog := cfg, log
	t.Cleanup(func() { cfg, log = prevCfg, prevLog })
	log = zerolog.Nop()

	cfg = config.Default()
	cfg.Hotkey, cfg.HotkeyDarwin = "", ""
	assert.Equal(t, nopCloser{}, registerHotkey(nil))

	if runtime.GOOS != "linux" {
		return
	}
	// without an X display the session toggle keeps working through the tray
	t.Setenv("DISPLAY", "")
	cfg.Hotkey = "Ctrl+Alt+M"
	hk := registerHotkey(nil)
	assert.Equal(t, nopCloser{}, hk)
	assert.NoError(t, hk.Close())
}
