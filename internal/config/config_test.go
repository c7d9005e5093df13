package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "intern.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"folder":[{"name":"/tmp/docs","recurse":true}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.Equal(t, defaultPeriod, cfg.Period)
	require.Len(t, cfg.Folders, 1)
	assert.Equal(t, "/tmp/docs", cfg.Folders[0].Name)
	assert.True(t, cfg.Folders[0].Recurse)
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"logLevel": "debug",
		"period": 5,
		"folder": [{"name": "/tmp/notes", "recurse": false, "include": ["*.md"]}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Period)
	require.Len(t, cfg.Folders, 1)
	assert.Equal(t, []string{"*.md"}, cfg.Folders[0].Includes)
}

func TestLoadRejectsMissingFolders(t *testing.T) {
	path := writeConfig(t, `{"logLevel": "info"}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, `{"logLevel": "verbose", "folder": [{"name": "/tmp", "recurse": true}]}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
