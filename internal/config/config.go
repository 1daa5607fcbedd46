// Package config loads sbomgraph settings.
//
// Sources, lowest precedence first:
//  1. Built-in defaults
//  2. Optional YAML file (--config)
//  3. .env files (read with godotenv, never exported to the process)
//  4. SBOMGRAPH_* environment variables
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
)

// Config is the resolved configuration.
type Config struct {
	Scope     string        `yaml:"validation_scope"`
	RoleSet   string        `yaml:"role_set"`
	Journal   string        `yaml:"journal"` // DSN; empty disables the journal
	Listen    string        `yaml:"listen"`
	CacheSize int           `yaml:"cache_size"`
	Debounce  time.Duration `yaml:"debounce"`
	Log       LogConfig     `yaml:"log"`
	Telemetry Telemetry     `yaml:"telemetry"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Telemetry selects the OpenTelemetry trace exporter.
type Telemetry struct {
	TraceExporter string `yaml:"trace_exporter"` // none, stdout, otlp
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Scope:     string(cycle.ScopeGlobal),
		RoleSet:   string(classify.RoleSetFull),
		Listen:    ":8080",
		CacheSize: 256,
		Debounce:  300 * time.Millisecond,
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: Telemetry{TraceExporter: "none", OTLPEndpoint: "localhost:4317"},
	}
}

// Load resolves configuration from path (optional), envFiles (default
// ".env"; missing files are skipped) and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	dotenv := map[string]string{}
	for _, f := range envFiles {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}

	return load(path, func(key string) string {
		return firstNonEmpty(strings.TrimSpace(os.Getenv(key)), strings.TrimSpace(dotenv[key]))
	})
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	c.Scope = firstNonEmpty(getenv("SBOMGRAPH_SCOPE"), c.Scope)
	c.RoleSet = firstNonEmpty(getenv("SBOMGRAPH_ROLE_SET"), c.RoleSet)
	c.Journal = firstNonEmpty(getenv("SBOMGRAPH_JOURNAL"), c.Journal)
	c.Listen = firstNonEmpty(getenv("SBOMGRAPH_LISTEN"), c.Listen)
	c.Log.Level = firstNonEmpty(getenv("SBOMGRAPH_LOG_LEVEL"), c.Log.Level)
	c.Log.Format = firstNonEmpty(getenv("SBOMGRAPH_LOG_FORMAT"), c.Log.Format)
	c.Telemetry.TraceExporter = firstNonEmpty(getenv("SBOMGRAPH_TRACE_EXPORTER"), c.Telemetry.TraceExporter)
	c.Telemetry.OTLPEndpoint = firstNonEmpty(getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), c.Telemetry.OTLPEndpoint)

	if raw := getenv("SBOMGRAPH_CACHE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("SBOMGRAPH_CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}
	if raw := getenv("SBOMGRAPH_DEBOUNCE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("SBOMGRAPH_DEBOUNCE: %w", err)
		}
		c.Debounce = d
	}
	return nil
}

// Validate checks every enumerated and numeric setting.
func (c *Config) Validate() error {
	if _, err := cycle.ParseScope(c.Scope); err != nil {
		return err
	}
	if _, err := classify.ParseRoleSet(c.RoleSet); err != nil {
		return err
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	switch c.Telemetry.TraceExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("invalid trace exporter %q", c.Telemetry.TraceExporter)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0, got %d", c.CacheSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must be >= 0, got %s", c.Debounce)
	}
	return nil
}

// ScopeValue returns the parsed validation scope.
func (c *Config) ScopeValue() cycle.Scope {
	s, _ := cycle.ParseScope(c.Scope)
	return s
}

// RoleSetValue returns the parsed role set.
func (c *Config) RoleSetValue() classify.RoleSet {
	r, _ := classify.ParseRoleSet(c.RoleSet)
	return r
}

// NewLogger builds the slog logger described by l.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
