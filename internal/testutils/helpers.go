// Package testutils holds helpers shared by the package tests: temporary
// theme roots, fixtures and configurations.
package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/pager"
)

// MinimalFixture is a one page site. %s is replaced by the site name.
const MinimalFixture = `site:
  name: %s
nodes:
  - path: /
    title: Home
    body: Hello.
`

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteFixture writes a minimal fixture named site.yml into dir.
func WriteFixture(t *testing.T, dir, siteName string) string {
	t.Helper()
	return WriteFile(t, dir, "site.yml", strings.Replace(MinimalFixture, "%s", siteName, 1))
}

// CreateTempTheme creates a theme root holding a logo and a stylesheet.
func CreateTempTheme(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	WriteFile(t, root, "logo.png", "png")
	WriteFile(t, root, filepath.Join("css", "minima.css"), "body { margin: 0; }\n")
	return root
}

// TestConfig returns a development configuration serving the bundled fixture
// from an empty theme root.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Server: config.ServerConfig{
			Host:        "localhost",
			Port:        0,
			Environment: "development",
		},
		Theme: config.ThemeConfig{Root: t.TempDir()},
		Pager: config.PagerConfig{
			WindowSize:   pager.DefaultWindowSize,
			ItemsPerPage: 3,
		},
		Log: config.LogConfig{Level: "info", Format: "text"},
	}
}

// AssertFileContains checks that the file at path exists and contains want.
func AssertFileContains(t *testing.T, path, want string) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), want, "file %s", path)
}
