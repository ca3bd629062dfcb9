package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "WARN", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "file", "imaging.xlsx")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "stmtgen")
	assert.Contains(t, out, "imaging.xlsx")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Infof("processed %d files", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "processed 3 files", entry["msg"])
	assert.Equal(t, "stmtgen", entry["prefix"])
}

func TestNewTeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "stmtgen.log")

	logger, closer, err := New(Config{Format: "logfmt", File: path, Output: &buf})
	require.NoError(t, err)
	logger.Error("boom", "department", "IMG")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
	assert.Contains(t, string(data), "department=IMG")
	assert.Equal(t, buf.String(), string(data))
}

func TestNewInvalid(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Config{Format: "xml"})
	assert.ErrorContains(t, err, "xml")
}
