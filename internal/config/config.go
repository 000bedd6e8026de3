// Package config loads the deepresearch configuration.
//
// Values are resolved in order, later sources winning: built-in defaults,
// an optional YAML file, a .env file in the working directory, and the
// process environment.
//
// Example config.yaml:
//
//	server:
//	  addr: ":8080"
//	  public_url: "https://research.example.com"
//	llm:
//	  model: "gpt-4o-mini"
//	exa:
//	  num_results: 8
//	store:
//	  path: "data/deepresearch.db"
//	workflow:
//	  max_iterations: 2
//	  min_confidence: 0.65
//	  timeout: 10m
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/deepresearch/patterns/research"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Exa      ExaConfig      `yaml:"exa"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// PublicURL prefixes report links handed to recipients.
	PublicURL string `yaml:"public_url"`
}

// LLMConfig configures the OpenAI-compatible summarizer and composer.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
}

// ExaConfig configures the Exa retrievers.
type ExaConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	NumResults int    `yaml:"num_results"`

	// FetchMissingContent fetches the page of search results that come
	// back without text.
	FetchMissingContent bool `yaml:"fetch_missing_content"`
}

// StoreConfig configures the SQLite report store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures the webhook notifier. Notifications are
// disabled without a URL.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// WorkflowConfig tunes the research workflow.
type WorkflowConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`
	MinConfidence  float64       `yaml:"min_confidence"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxSteps       int           `yaml:"max_steps"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// LogConfig configures the slog observer.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			PublicURL: "http://localhost:8080",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Exa: ExaConfig{
			NumResults:          research.DefaultSearchResults,
			FetchMissingContent: true,
		},
		Store: StoreConfig{
			Path: "data/deepresearch.db",
		},
		Workflow: WorkflowConfig{
			MaxIterations:  research.DefaultMaxIterations,
			MinConfidence:  research.DefaultMinConfidence,
			Timeout:        research.DefaultTimeout,
			InitialBackoff: research.DefaultRetryPolicy().InitialBackoff,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an
// empty path skips it, a missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.Model, "OPENAI_MODEL")
	setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Exa.APIKey, "EXA_API_KEY")
	setString(&cfg.Exa.BaseURL, "EXA_BASE_URL")
	setString(&cfg.Server.Addr, "DEEPRESEARCH_ADDR")
	setString(&cfg.Server.PublicURL, "DEEPRESEARCH_PUBLIC_URL")
	setString(&cfg.Store.Path, "DEEPRESEARCH_DB")
	setString(&cfg.Notify.WebhookURL, "DEEPRESEARCH_WEBHOOK_URL")
	setString(&cfg.Log.Level, "DEEPRESEARCH_LOG_LEVEL")
	setString(&cfg.Log.Format, "DEEPRESEARCH_LOG_FORMAT")

	return errors.Join(
		setParsed(&cfg.Workflow.MaxIterations, "DEEPRESEARCH_MAX_ITERATIONS", strconv.Atoi),
		setParsed(&cfg.Workflow.MinConfidence, "DEEPRESEARCH_MIN_CONFIDENCE", parseFloat),
		setParsed(&cfg.Workflow.Timeout, "DEEPRESEARCH_TIMEOUT", time.ParseDuration),
	)
}

func setString(target *string, name string) {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		*target = value
	}
}

func setParsed[T any](target *T, name string, parse func(string) (T, error)) error {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil
	}

	parsed, err := parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, name, value, err)
	}
	*target = parsed
	return nil
}

func parseFloat(value string) (float64, error) {
	return strconv.ParseFloat(value, 64)
}

// Validate reports every out-of-range value at once.
func (cfg *Config) Validate() error {
	var problems []error
	invalid := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if cfg.Server.Addr == "" {
		invalid("server.addr must not be empty")
	}
	if cfg.Store.Path == "" {
		invalid("store.path must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		invalid("llm.temperature %v outside [0, 2]", cfg.LLM.Temperature)
	}
	if cfg.Exa.NumResults < 1 || cfg.Exa.NumResults > 100 {
		invalid("exa.num_results %d outside [1, 100]", cfg.Exa.NumResults)
	}
	if cfg.Workflow.MaxIterations < 1 {
		invalid("workflow.max_iterations must be at least 1, got %d", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.MinConfidence < 0 || cfg.Workflow.MinConfidence > 1 {
		invalid("workflow.min_confidence %v outside [0, 1]", cfg.Workflow.MinConfidence)
	}
	if cfg.Workflow.Timeout <= 0 {
		invalid("workflow.timeout must be positive")
	}
	if cfg.Workflow.MaxSteps < 0 {
		invalid("workflow.max_steps must not be negative")
	}
	if cfg.Workflow.InitialBackoff < 0 {
		invalid("workflow.initial_backoff must not be negative")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		invalid("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		invalid("log.format %q is not text or json", cfg.Log.Format)
	}

	return errors.Join(problems...)
}

// WorkflowOptions maps the workflow section onto research options.
func (cfg *Config) WorkflowOptions() []research.Option {
	opts := []research.Option{
		research.WithMaxIterations(cfg.Workflow.MaxIterations),
		research.WithMinConfidence(cfg.Workflow.MinConfidence),
		research.WithTimeout(cfg.Workflow.Timeout),
		research.WithSearchResults(cfg.Exa.NumResults),
	}
	if cfg.Workflow.MaxSteps > 0 {
		opts = append(opts, research.WithMaxSteps(cfg.Workflow.MaxSteps))
	}
	if cfg.Workflow.InitialBackoff > 0 {
		opts = append(opts, research.WithInitialBackoff(cfg.Workflow.InitialBackoff))
	}
	return opts
}
