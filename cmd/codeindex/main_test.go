package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"CODEINDEX_DATA_DIR", "CODEINDEX_LOG_LEVEL", "CODEINDEX_EMBEDDING_PROVIDER",
		"CODEINDEX_EMBEDDING_ENDPOINT", "CODEINDEX_EMBEDDING_API_KEY", "JINA_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "data_dir: " + t.TempDir() + "\nlog_level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codeindex dev")
	assert.Contains(t, out, "Schema Version:")
}

func TestIndexSearchStatus(t *testing.T) {
	cfg := testConfig(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "config.go"), []byte(
		"package app\n\nfunc parseConfig(path string) error {\n\treturn nil\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "readme.txt"), []byte(
		"nothing to see here\n"), 0o644))

	out, err := run(t, "--config", cfg, "--root", project, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "full index: 2 files")

	out, err = run(t, "--config", cfg, "--root", project, "index", "--changed")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	out, err = run(t, "--config", cfg, "--root", project, "search", "--mode", "keyword", "parseConfig")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[1], "config.go:1-5")

	out, err = run(t, "--config", cfg, "--root", project, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Files:      2")
	assert.Contains(t, out, "Symbols:    1")
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, "--config", cfg, "--log-level", "chatty", "status")
	assert.Error(t, err)
}
