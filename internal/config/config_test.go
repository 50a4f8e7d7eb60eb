package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
manuscript:
  root: ./book
release:
  api_url: https://git.example.com/api/v1
  owner: example
  repo: book
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "main.tex", cfg.Manuscript.Entry)
	assert.Equal(t, "latexmk", cfg.Build.Engine)
	assert.Equal(t, "pygmentize", cfg.Build.Highlighter)
	assert.Equal(t, "current", cfg.Release.Tag)
	assert.Equal(t, 30*time.Minute, cfg.Build.Timeout)
	assert.NotEmpty(t, cfg.Manuscript.WatchPaths)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("BOOKFORGE_TEST_TOKEN", "sekrit")
	path := writeConfig(t, `
release:
  api_url: https://git.example.com/api/v1
  owner: example
  repo: book
  token: ${BOOKFORGE_TEST_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", cfg.Release.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "manuscript: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
}

func TestValidateRejectsAbsoluteEntry(t *testing.T) {
	path := writeConfig(t, `
manuscript:
  entry: /etc/main.tex
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	path := writeConfig(t, `
daemon:
  schedule: "every day"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateForRelease(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	require.Error(t, cfg.ValidateForRelease())

	cfg.Release = ReleaseConfig{
		APIURL: "https://git.example.com/api/v1",
		Owner:  "example",
		Repo:   "book",
		Token:  "t",
		Tag:    "current",
	}
	require.NoError(t, cfg.ValidateForRelease())
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.yaml")

	require.NoError(t, Init(path, false))

	// Second init without force must refuse to overwrite.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main.tex", cfg.Manuscript.Entry)
	assert.True(t, cfg.Build.ShellEscape)
}
