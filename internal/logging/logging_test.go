package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: InfoLevel, Output: &buf, JSON: true})

	logger.Debug("hidden")
	logger.Info("uploaded", "repository", "GATE", "triples", 12)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "uploaded", entry["msg"])
	assert.Equal(t, "GATE", entry["repository"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: DebugLevel, Output: &buf})

	logger.Debug("probing", "url", "http://localhost:7200")
	assert.Contains(t, buf.String(), "probing")
	assert.Contains(t, buf.String(), "localhost:7200")
}
