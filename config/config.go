// Package config loads jsaudit settings from a TOML or YAML file, a .env
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fwojciec/jsaudit"
	"github.com/fwojciec/jsaudit/web"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Environment variables that override file settings.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvModel        = "JSAUDIT_MODEL"
	EnvProxy        = "JSAUDIT_PROXY"
)

// placeholderKeys are sample values shipped in example configs.
var placeholderKeys = map[string]bool{
	"YOUR_GEMINI_API_KEY": true,
	"YOUR_OPENAI_API_KEY": true,
	"YOUR_API_KEY":        true,
}

// legacyCodePlaceholder is accepted in prompt templates as an alias of {code}.
const legacyCodePlaceholder = "{js_code}"

// Duration is a time.Duration that decodes from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all jsaudit settings.
type Config struct {
	Model    ModelConfig    `toml:"model" yaml:"model"`
	Proxy    ProxyConfig    `toml:"proxy" yaml:"proxy"`
	Analysis AnalysisConfig `toml:"analysis" yaml:"analysis"`
	Prompts  PromptsConfig  `toml:"prompts" yaml:"prompts"`
	Fetch    FetchConfig    `toml:"fetch" yaml:"fetch"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
}

// ModelConfig selects and tunes the language model provider.
type ModelConfig struct {
	Provider          string   `toml:"provider" yaml:"provider"`
	Name              string   `toml:"name" yaml:"name"`
	APIKey            string   `toml:"api_key" yaml:"api_key"`
	BaseURL           string   `toml:"base_url" yaml:"base_url"`
	Temperature       float32  `toml:"temperature" yaml:"temperature"`
	Timeout           Duration `toml:"timeout" yaml:"timeout"`
	MaxRetries        int      `toml:"max_retries" yaml:"max_retries"`
	RequestsPerSecond float64  `toml:"requests_per_second" yaml:"requests_per_second"`
	Cache             bool     `toml:"cache" yaml:"cache"`
}

// ProxyConfig routes model traffic, and optionally script fetches, through
// a proxy.
type ProxyConfig struct {
	Type         string `toml:"type" yaml:"type"`
	Host         string `toml:"host" yaml:"host"`
	Port         int    `toml:"port" yaml:"port"`
	Username     string `toml:"username" yaml:"username"`
	Password     string `toml:"password" yaml:"password"`
	ApplyToFetch bool   `toml:"apply_to_fetch" yaml:"apply_to_fetch"`
}

// Web returns the transport-level proxy settings.
func (p ProxyConfig) Web() web.ProxyConfig {
	return web.ProxyConfig{
		Type:     p.Type,
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
	}
}

// AnalysisConfig tunes the chunked analysis pipeline.
type AnalysisConfig struct {
	MaxChunkSize int `toml:"max_chunk_size" yaml:"max_chunk_size"`
	Concurrency  int `toml:"concurrency" yaml:"concurrency"`
}

// PromptsConfig overrides the built-in prompt templates. Empty fields keep
// the defaults.
type PromptsConfig struct {
	WholeDocument     string `toml:"whole_document" yaml:"whole_document"`
	ChunkContinuation string `toml:"chunk_continuation" yaml:"chunk_continuation"`
	Summary           string `toml:"summary" yaml:"summary"`
}

// FetchConfig controls script retrieval.
type FetchConfig struct {
	Timeout    Duration `toml:"timeout" yaml:"timeout"`
	Delay      Duration `toml:"delay" yaml:"delay"`
	MaxBytes   int64    `toml:"max_bytes" yaml:"max_bytes"`
	UserAgents []string `toml:"user_agents" yaml:"user_agents"`
	CacheSize  int      `toml:"cache_size" yaml:"cache_size"`
	Workers    int      `toml:"workers" yaml:"workers"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir      string `toml:"dir" yaml:"dir"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
	History  string `toml:"history" yaml:"history"`
	HTML     bool   `toml:"html" yaml:"html"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    ProviderGemini,
			Temperature: 0.2,
			Timeout:     Duration{120 * time.Second},
			MaxRetries:  3,
		},
		Analysis: AnalysisConfig{
			MaxChunkSize: jsaudit.DefaultMaxChunkSize,
			Concurrency:  1,
		},
		Fetch: FetchConfig{
			Timeout:   Duration{web.DefaultTimeout},
			Delay:     Duration{web.DefaultDelay},
			MaxBytes:  web.DefaultMaxBytes,
			CacheSize: web.DefaultCacheSize,
			Workers:   jsaudit.DefaultFetchWorkers,
		},
		Output: OutputConfig{
			Dir:  ".",
			HTML: true,
		},
	}
}

// Load reads .env from the working directory (if present), then the config
// file at path (if present), then applies environment overrides. An empty
// path skips the file. Load does not validate; call Validate before use.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return &jsaudit.ConfigError{Field: "config", Reason: fmt.Sprintf("unsupported file extension %q (want .toml, .yaml or .yml)", ext)}
	}
	if err != nil {
		return &jsaudit.ConfigError{Field: "config", Reason: "cannot parse " + path, Err: err}
	}
	return nil
}

func (c *Config) applyEnv() error {
	switch c.Model.Provider {
	case ProviderGemini:
		if v := os.Getenv(EnvGeminiAPIKey); v != "" {
			c.Model.APIKey = v
		}
	case ProviderOpenAI:
		if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
			c.Model.APIKey = v
		}
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		p, err := web.ParseProxyURL(v)
		if err != nil {
			return err
		}
		c.Proxy.Type, c.Proxy.Host, c.Proxy.Port = p.Type, p.Host, p.Port
		c.Proxy.Username, c.Proxy.Password = p.Username, p.Password
	}
	return nil
}

// Validate checks settings needed for analysis.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return &jsaudit.ConfigError{Field: "model.provider", Reason: fmt.Sprintf("unknown provider %q", c.Model.Provider)}
	}
	if key := strings.TrimSpace(c.Model.APIKey); key == "" || placeholderKeys[key] {
		return &jsaudit.ConfigError{Field: "model.api_key", Reason: fmt.Sprintf("is not set; configure it or export %s", c.apiKeyEnv())}
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return &jsaudit.ConfigError{Field: "model.temperature", Reason: "must be between 0 and 2"}
	}
	if c.Model.MaxRetries < 0 {
		return &jsaudit.ConfigError{Field: "model.max_retries", Reason: "must not be negative"}
	}
	if c.Analysis.MaxChunkSize <= 0 {
		return &jsaudit.ConfigError{Field: "analysis.max_chunk_size", Reason: "must be positive"}
	}
	if c.Analysis.Concurrency < 0 {
		return &jsaudit.ConfigError{Field: "analysis.concurrency", Reason: "must not be negative"}
	}
	if err := c.Proxy.Web().Validate(); err != nil {
		return err
	}
	return c.Templates().Validate()
}

func (c *Config) apiKeyEnv() string {
	if c.Model.Provider == ProviderOpenAI {
		return EnvOpenAIAPIKey
	}
	return EnvGeminiAPIKey
}

// Templates returns the prompt templates with overrides applied.
func (c *Config) Templates() jsaudit.Templates {
	t := jsaudit.DefaultTemplates()
	if s := c.Prompts.WholeDocument; s != "" {
		t.WholeDocument = jsaudit.PromptTemplate(strings.ReplaceAll(s, legacyCodePlaceholder, "{"+jsaudit.PlaceholderCode+"}"))
	}
	if s := c.Prompts.ChunkContinuation; s != "" {
		t.ChunkContinuation = jsaudit.PromptTemplate(strings.ReplaceAll(s, legacyCodePlaceholder, "{"+jsaudit.PlaceholderCode+"}"))
	}
	if s := c.Prompts.Summary; s != "" {
		t.Summary = jsaudit.PromptTemplate(s)
	}
	return t
}

// AnalyzerOptions returns the options for jsaudit.NewAnalyzer.
func (c *Config) AnalyzerOptions(logger *log.Logger) []jsaudit.AnalyzerOption {
	opts := []jsaudit.AnalyzerOption{
		jsaudit.WithMaxChunkSize(c.Analysis.MaxChunkSize),
		jsaudit.WithTemplates(c.Templates()),
		jsaudit.WithConcurrency(c.Analysis.Concurrency),
	}
	if logger != nil {
		opts = append(opts, jsaudit.WithLogger(logger))
	}
	return opts
}
