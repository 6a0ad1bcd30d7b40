package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithLevel(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("log path is under XDG_STATE_HOME on linux only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		log := NewWithLevel(tt.level)
		assert.Equal(t, tt.want, log.GetLevel(), tt.level)
	}

	infoLog := NewWithLevel("info")
	infoLog.Info().Msg("hello")
	data, err := os.ReadFile(filepath.Join(dir, "memorylens", "memorylens.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
