package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, color bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColor(color)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetColor(true)
	})
	return &buf
}

func TestPlainOutput(t *testing.T) {
	buf := capture(t, false)

	PrintInfo("Username", "alice")
	PrintError("Export failed", "upstream down")
	PrintWarning("No records")
	PrintSuccess("done")

	assert.Equal(t, "Username: alice\nExport failed: upstream down\nNo records\ndone\n", buf.String())
}

func TestColoredOutput(t *testing.T) {
	buf := capture(t, true)

	PrintSuccess("done")

	assert.Equal(t, "\033[32mdone\033[0m\n", buf.String())
}
