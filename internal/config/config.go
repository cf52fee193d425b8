package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort          = 8080
	DefaultResultTTL         = time.Hour
	DefaultBroadcastInterval = 5 * time.Second
	DefaultRescanInterval    = time.Minute
	DefaultRetention         = 30 * 24 * time.Hour
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
)

// Config is the top-level service configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Jobs    []Job         `yaml:"jobs"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// ServerConfig holds the HTTP side: REST API, metrics, WebSocket hub.
type ServerConfig struct {
	// HTTPPort is the port the REST API, /metrics and /ws/stream listen on.
	HTTPPort int `yaml:"http_port"`

	// ResultTTL is how long a job result stays visible without being
	// recomputed. Jobs removed from the config age out after this.
	ResultTTL time.Duration `yaml:"result_ttl"`

	// BroadcastInterval controls how often the hub pushes a snapshot to
	// WebSocket clients when nothing changed.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// Auth guards /api/ and /metrics.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls client authentication on the HTTP server.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv names the environment variable holding the expected API key.
	// Required when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header carrying the key. Defaults to X-API-Key.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or X-API-Key.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// EngineConfig controls how jobs are run.
type EngineConfig struct {
	// RescanInterval is how often every job is re-run even without a file
	// change. Unchanged inputs are answered from cache.
	RescanInterval time.Duration `yaml:"rescan_interval"`

	// Strict rejects inputs whose maps contain overlapping source ranges.
	Strict bool `yaml:"strict"`
}

// StorageConfig configures the optional run history backend.
type StorageConfig struct {
	// Backend selects the history implementation: sqlite, or empty to
	// disable history.
	Backend string `yaml:"backend"`

	// Path is the filesystem path for the SQLite database file.
	Path string `yaml:"path"`

	// Retention is how long history rows are kept before deletion.
	Retention time.Duration `yaml:"retention"`
}

// AlertsConfig holds alert rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule is one condition evaluated against every job result.
type AlertRule struct {
	// Name identifies the rule and deduplicates its alerts per job.
	Name string `yaml:"name"`

	// Condition is "field op value", e.g. "state == failed",
	// "minimum_start < 100" or "output_intervals > 10000".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Defaults to warning.
	Severity string `yaml:"severity"`

	// Jobs limits the rule to these job IDs. Empty means every job.
	Jobs []string `yaml:"jobs"`

	// Cooldown suppresses re-fires after the rule fired. Defaults to 15m.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig is one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Job is one input file to translate.
type Job struct {
	// ID is a unique, human-readable identifier for this job.
	ID string `yaml:"id"`

	// Path is the input file. Relative paths are resolved against the
	// directory holding the config file. Files ending in .xz are
	// decompressed.
	Path string `yaml:"path"`

	// Mode is ranges (seed pairs are start/length) or values.
	Mode string `yaml:"mode"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Jobs {
		if !filepath.IsAbs(cfg.Jobs[i].Path) {
			cfg.Jobs[i].Path = filepath.Join(base, cfg.Jobs[i].Path)
		}
	}
	if cfg.Storage.Backend != "" && !filepath.IsAbs(cfg.Storage.Path) {
		cfg.Storage.Path = filepath.Join(base, cfg.Storage.Path)
	}

	return cfg, nil
}

// InputPaths returns the path of every job, in job order.
func (c *Config) InputPaths() []string {
	out := make([]string, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		out = append(out, j.Path)
	}
	return out
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			ResultTTL:         DefaultResultTTL,
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Engine: EngineConfig{
			RescanInterval: DefaultRescanInterval,
		},
		Storage: StorageConfig{
			Retention: DefaultRetention,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if cfg.Server.ResultTTL <= 0 {
		return fmt.Errorf("server.result_ttl must be positive")
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Engine.RescanInterval <= 0 {
		return fmt.Errorf("engine.rescan_interval must be positive")
	}
	switch cfg.Storage.Backend {
	case "":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for backend sqlite")
		}
		if cfg.Storage.Retention <= 0 {
			return fmt.Errorf("storage.retention must be positive")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend)
	}

	switch cfg.Server.Auth.Mode {
	case "", "none":
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required for mode apikey")
		}
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d] %q: condition must be \"field op value\"", i, r.Name)
		}
		switch r.Severity {
		case "", "critical", "warning", "info":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	seen := make(map[string]bool, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		if j.ID == "" {
			return fmt.Errorf("jobs[%d]: id is required", i)
		}
		if seen[j.ID] {
			return fmt.Errorf("jobs[%d]: duplicate id %q", i, j.ID)
		}
		seen[j.ID] = true
		if j.Path == "" {
			return fmt.Errorf("jobs[%d] %q: path is required", i, j.ID)
		}
		switch j.Mode {
		case "", "ranges", "values":
		default:
			return fmt.Errorf("jobs[%d] %q: unknown mode %q", i, j.ID, j.Mode)
		}
	}
	return nil
}
