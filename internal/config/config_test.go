package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, cycle.ScopeGlobal, cfg.ScopeValue())
	assert.Equal(t, classify.RoleSetFull, cfg.RoleSetValue())
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Empty(t, cfg.Journal)
}

// TestLoad_FileThenEnv tests that environment overrides the YAML file.
func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sbomgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
validation_scope: document
role_set: compact
journal: journal.db
debounce: 1s
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := load(path, env(map[string]string{
		"SBOMGRAPH_ROLE_SET":   "full",
		"SBOMGRAPH_CACHE_SIZE": "8",
	}))
	require.NoError(t, err)

	assert.Equal(t, cycle.ScopeDocument, cfg.ScopeValue())
	assert.Equal(t, classify.RoleSetFull, cfg.RoleSetValue(), "env wins over file")
	assert.Equal(t, "journal.db", cfg.Journal)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, 8, cfg.CacheSize)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

// TestLoad_DotEnv tests that .env values apply when the process env is unset.
func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("SBOMGRAPH_SCOPE", "")
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SBOMGRAPH_SCOPE=document\n"), 0o644))

	cfg, err := Load("", dotenv, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, cycle.ScopeDocument, cfg.ScopeValue())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"scope":          {"SBOMGRAPH_SCOPE": "partial"},
		"role set":       {"SBOMGRAPH_ROLE_SET": "tiny"},
		"log level":      {"SBOMGRAPH_LOG_LEVEL": "loud"},
		"log format":     {"SBOMGRAPH_LOG_FORMAT": "xml"},
		"trace exporter": {"SBOMGRAPH_TRACE_EXPORTER": "zipkin"},
		"cache size":     {"SBOMGRAPH_CACHE_SIZE": "many"},
		"negative cache": {"SBOMGRAPH_CACHE_SIZE": "-1"},
		"debounce":       {"SBOMGRAPH_DEBOUNCE": "soon"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load("", env(vars))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	assert.ErrorContains(t, err, "read config")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
