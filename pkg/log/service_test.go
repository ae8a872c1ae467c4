package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", Debug},
		{"INFO", Info},
		{" warn ", Warn},
		{"warning", Warn},
		{"Error", Error},
		{"fatal", Fatal},
		{"", Info},
		{"verbose", Info},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("scan", "WARN", &buf)

	logger.Debug("hidden %d", 1)
	logger.Info("hidden too")
	logger.Warn("visible %s", "warning")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warning")
	assert.Contains(t, out, "[scan]")
}

func TestLogger_NamedSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("muc", "DEBUG", &buf).Named("walker")

	logger.Info("page done")

	assert.Contains(t, buf.String(), "[muc/walker] page done")
}

func TestLogger_LiteralPercentWithoutArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("", "INFO", &buf)

	logger.Info("LIKE '%widget%'")

	assert.Contains(t, buf.String(), "LIKE '%widget%'")
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	impl := NewWriterLogger("api", "INFO", &buf).(*LoggerServiceImpl)
	impl.cfg.JSON = true

	impl.Error("request failed: %s", "timeout")

	var entry logEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "api", entry.Service)
	assert.Equal(t, "request failed: timeout", entry.Message)
}
