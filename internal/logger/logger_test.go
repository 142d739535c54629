package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		checkFunc func(t *testing.T, output string)
	}{
		{
			name: "text logger info level",
			config: Config{
				Level:  "info",
				Format: "text",
				Output: "stdout",
			},
			checkFunc: func(t *testing.T, output string) {
				require.Contains(t, output, "level=INFO")
				require.Contains(t, output, `msg="test message"`)
			},
		},
		{
			name: "json logger debug level",
			config: Config{
				Level:  "debug",
				Format: "json",
				Output: "stdout",
			},
			checkFunc: func(t *testing.T, output string) {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &entry))
				require.Equal(t, "DEBUG", entry["level"])
				require.Equal(t, "test message", entry["msg"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.config, &buf)
			if tt.config.Level == "debug" {
				log.Debug("test message")
			} else {
				log.Info("test message")
			}
			tt.checkFunc(t, buf.String())
		})
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "not-a-level", Format: "text"}, &buf)
	log.Info("hello")
	require.Contains(t, buf.String(), "level=INFO")

	var level slog.Level
	require.NoError(t, level.UnmarshalText([]byte("info")))
}
