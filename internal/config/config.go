// Package config loads runtime configuration from environment variables and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreBackendMemory    = "memory"
	StoreBackendFirestore = "firestore"
)

// Config holds all configuration for the form summary service.
type Config struct {
	ProjectID      string `mapstructure:"project_id"`
	VertexAIRegion string `mapstructure:"vertex_ai_region"`
	GeminiModel    string `mapstructure:"gemini_model"`
	PromptProfile  string `mapstructure:"prompt_profile"`
	PromptHeader   string `mapstructure:"prompt_header"`

	StoreBackend        string `mapstructure:"store_backend"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
	FirestoreDatabase   string `mapstructure:"firestore_database"`

	ResultsBucket      string `mapstructure:"results_bucket"`
	FollowUpWorkflowID string `mapstructure:"followup_workflow_id"`
	WorkflowLocation   string `mapstructure:"workflow_location"`

	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	RetentionTTL      time.Duration `mapstructure:"retention_ttl"`
	JanitorInterval   time.Duration `mapstructure:"janitor_interval"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`

	ListenAddress string `mapstructure:"listen_address"`
	LogLevel      string `mapstructure:"log_level"`
	OTLPEndpoint  string `mapstructure:"otel_exporter_otlp_endpoint"`
}

// Options customises how configuration should be loaded.
type Options struct {
	Path string
}

var defaults = map[string]any{
	"vertex_ai_region":     "us-central1",
	"gemini_model":         "gemini-1.5-flash",
	"prompt_profile":       "summary",
	"store_backend":        StoreBackendMemory,
	"firestore_collection": "submissions",
	"firestore_database":   "(default)",
	"workflow_location":    "us-central1",
	"generation_timeout":   "120s",
	"retention_ttl":        "0s",
	"janitor_interval":     "10m",
	"poll_interval":        "5s",
	"shutdown_timeout":     "30s",
	"listen_address":       ":8080",
	"log_level":            "info",
}

// Load parses configuration from the environment only.
func Load() (*Config, error) {
	return LoadWithOptions(Options{})
}

// LoadShared loads the environment configuration of a process that shares
// its store with other processes, such as a Cloud Functions instance.
func LoadShared() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireSharedStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithOptions reads the optional YAML file at opts.Path, then lets
// environment variables override it. Keys map to upper-case variables, e.g.
// gemini_model -> GEMINI_MODEL.
func LoadWithOptions(opts Options) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{
		"project_id",
		"vertex_ai_region",
		"gemini_model",
		"prompt_profile",
		"prompt_header",
		"store_backend",
		"firestore_collection",
		"firestore_database",
		"results_bucket",
		"followup_workflow_id",
		"workflow_location",
		"generation_timeout",
		"retention_ttl",
		"janitor_interval",
		"poll_interval",
		"shutdown_timeout",
		"listen_address",
		"log_level",
		"otel_exporter_otlp_endpoint",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ProjectID == "" {
		errs = append(errs, errors.New("PROJECT_ID environment variable must be set"))
	}
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendFirestore:
		if c.FirestoreCollection == "" {
			errs = append(errs, errors.New("FIRESTORE_COLLECTION must be set for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.RetentionTTL < 0 {
		errs = append(errs, errors.New("RETENTION_TTL must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// RequireSharedStore rejects backends that live inside a single process.
func (c *Config) RequireSharedStore() error {
	if c.StoreBackend != StoreBackendFirestore {
		return fmt.Errorf("STORE_BACKEND must be %q when instances share no memory, got %q",
			StoreBackendFirestore, c.StoreBackend)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
