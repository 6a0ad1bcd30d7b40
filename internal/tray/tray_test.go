package tray

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/petems/memorylens/internal/app"
	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/detection"
	"github.com/petems/memorylens/internal/logging"
	"github.com/rs/zerolog"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"active", "🟢"},
		{"recording", "🔴"},
		{"processing", "🟡"},
		{"idle", "⚫️"},
		{"error", "⚪️"},
		{"bogus", "⚫️"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := emojiForStatus(tt.status); got != tt.want {
				t.Errorf("emojiForStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestToggleTitle(t *testing.T) {
	if got := toggleTitle(app.Idle); got != "Start MemoryLens" {
		t.Errorf("idle title = %q", got)
	}
	if got := toggleTitle(app.Active); got != "End Session" {
		t.Errorf("active title = %q", got)
	}
}

// TestFacesTooltipOrder verifies faces are listed by horizontal position, not
// by the order the service reported them.
func TestFacesTooltipOrder(t *testing.T) {
	a := detection.Record{BBox: detection.BBox{0, 300, 50, 250}, Name: "Bob"}
	b := detection.Record{BBox: detection.BBox{0, 100, 50, 50}, Name: "Alice"}
	c := detection.Record{BBox: detection.BBox{0, 200, 50, 150}, Name: detection.Unknown}

	want := "In view: Alice, Unknown, Bob"
	for _, set := range []detection.Set{{a, b, c}, {c, a, b}, {b, c, a}} {
		if got := facesTooltip(set); got != want {
			t.Errorf("facesTooltip = %q, want %q", got, want)
		}
	}

	if got := facesTooltip(nil); got != "No faces in view" {
		t.Errorf("empty tooltip = %q", got)
	}
}

func TestTranscriptLine(t *testing.T) {
	if got := transcriptLine("  hello\n there ", 20); got != "hello there" {
		t.Errorf("short line = %q", got)
	}

	got := transcriptLine("the quick brown fox jumps over", 10)
	if got != "…umps over" {
		t.Errorf("long line = %q", got)
	}
	if n := len([]rune(got)); n != 10 {
		t.Errorf("long line has %d runes, want 10", n)
	}
}

func TestSelectedDevice(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		id         string
		isDefault  bool
		want       bool
	}{
		{"default when unset", "", "mic", true, true},
		{"non-default when unset", "", "usb", false, false},
		{"explicit default keyword", "default", "mic", true, true},
		{"configured match", "usb", "usb", false, true},
		{"configured overrides default", "usb", "mic", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectedDevice(tt.configured, tt.id, tt.isDefault); got != tt.want {
				t.Errorf("selectedDevice(%q, %q, %v) = %v, want %v", tt.configured, tt.id, tt.isDefault, got, tt.want)
			}
		})
	}
}

func TestNoticeTitle(t *testing.T) {
	if got := noticeTitle(app.LevelSuccess, "Identity updated: Ada"); got != "✅ Identity updated: Ada" {
		t.Errorf("success notice = %q", got)
	}
	if got := noticeTitle(app.LevelError, "Transcription failed"); got != "❌ Transcription failed" {
		t.Errorf("error notice = %q", got)
	}
}

func TestNewLogsThroughCallerLogger(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)

	var buf bytes.Buffer
	u := New(nil, config.Default(), zerolog.New(&buf), "1.0.0", "abc")
	u.Notice(app.LevelWarn, "Microphone unavailable")

	out := buf.String()
	if !strings.Contains(out, `"component":"tray"`) || !strings.Contains(out, "Microphone unavailable") {
		t.Errorf("notice not logged through the given logger: %s", out)
	}
	if _, err := os.Stat(logging.Path()); !os.IsNotExist(err) {
		t.Errorf("tray opened its own log file at %s", logging.Path())
	}
}
