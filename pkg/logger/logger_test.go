package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"curiousqa/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewWithWriterFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.WithField("username", "alice").
		WithError(errors.New("boom")).
		InfoWithFields("Export completed", map[string]interface{}{"records": 2, "cached": false})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Export completed", entry["message"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(2), entry["records"])
	assert.Equal(t, false, entry["cached"])
	assert.Equal(t, "curiousqa", entry["app"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = parseLogLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"
	l, err := New(&config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	l.Info("to file")
	// console goes to stderr; the file must still receive the line
	assert.FileExists(t, path)
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "POST", "/download/", 200, time.Millisecond, "r1")
	LogRequest(tl, "POST", "/download/", 400, time.Millisecond, "r2")
	LogRequest(tl, "POST", "/download/", 502, time.Millisecond, "r3")

	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}

func TestLogExportCarriesError(t *testing.T) {
	tl := NewTestLogger()
	LogExport(tl, "alice", 3, 0, time.Second, errors.New("upstream down"))

	msgs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, msgs, 1)
	assert.EqualError(t, msgs[0].Error, "upstream down")
	assert.Equal(t, "alice", msgs[0].Fields["username"])
}

func TestTestLoggerChildrenShareSink(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("component", "paginator")
	child.WithFields(map[string]interface{}{"page": 1}).Debug("Page fetched")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "paginator", msgs[0].Fields["component"])
	assert.Equal(t, 1, msgs[0].Fields["page"])
	assert.True(t, tl.HasMessage("Page fetched"))
	assert.False(t, tl.HasError())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Info("nothing")
	assert.NotNil(t, l.GetZerolog())
}
