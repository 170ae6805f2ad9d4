package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ishaan812/treeqa/internal/constants"
)

// EnvPrefix prefixes environment overrides, e.g. TREEQA_CRAWL_WORKERS.
const EnvPrefix = "TREEQA"

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider,omitempty"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
}

type CrawlConfig struct {
	Include        []string `mapstructure:"include" yaml:"include,omitempty"`
	Exclude        []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Gitignore      bool     `mapstructure:"gitignore" yaml:"gitignore"`
	Workers        int      `mapstructure:"workers" yaml:"workers"`
	MaxDepth       int      `mapstructure:"max_depth" yaml:"max_depth"`
	MaxFileSize    int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
	FolderOverflow string   `mapstructure:"folder_overflow" yaml:"folder_overflow"`
}

type RetrievalConfig struct {
	TopK    int  `mapstructure:"top_k" yaml:"top_k"`
	Folders bool `mapstructure:"folders" yaml:"folders"`
	Files   bool `mapstructure:"files" yaml:"files"`
}

type Config struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// API Keys
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key,omitempty"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key" yaml:"openai_api_key,omitempty"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" yaml:"openrouter_api_key,omitempty"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key" yaml:"gemini_api_key,omitempty"`
	VoyageAIAPIKey   string `mapstructure:"voyageai_api_key" yaml:"voyageai_api_key,omitempty"`

	// Bedrock config
	AWSRegion          string `mapstructure:"aws_region" yaml:"aws_region,omitempty"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id" yaml:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key" yaml:"aws_secret_access_key,omitempty"`

	// Model budget
	ContextWindow   int           `mapstructure:"context_window" yaml:"context_window"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	Tokenizer       string        `mapstructure:"tokenizer" yaml:"tokenizer"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Crawl     CrawlConfig     `mapstructure:"crawl" yaml:"crawl"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
}

var configPath string

func init() {
	configPath = filepath.Join(GetTreeqaDir(), "config.yaml")
}

func GetConfigPath() string {
	return configPath
}

// SetConfigPath overrides the file Load and Save use.
func SetConfigPath(path string) {
	if path != "" {
		configPath = path
	}
}

// GetTreeqaDir returns the base treeqa directory path
func GetTreeqaDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".treeqa"
	}
	return filepath.Join(homeDir, ".treeqa")
}

// DefaultCachePath returns the cache location for a backend.
func DefaultCachePath(backend string) string {
	if backend == "sqlite" {
		return filepath.Join(GetTreeqaDir(), "cache.db")
	}
	return filepath.Join(GetTreeqaDir(), "cache.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(constants.ProviderOllama))
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	for _, key := range []string{
		"anthropic_api_key", "openai_api_key", "openrouter_api_key", "gemini_api_key",
		"voyageai_api_key", "aws_access_key_id", "aws_secret_access_key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("aws_region", "us-east-1")

	v.SetDefault("context_window", constants.DefaultContextWindow)
	v.SetDefault("max_output_tokens", constants.DefaultMaxOutputTokens)
	v.SetDefault("tokenizer", constants.DefaultTokenizer)
	v.SetDefault("request_timeout", 120*time.Second)

	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.base_url", "")

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.path", "")

	v.SetDefault("crawl.include", []string{})
	v.SetDefault("crawl.exclude", []string{})
	v.SetDefault("crawl.gitignore", true)
	v.SetDefault("crawl.workers", 1)
	v.SetDefault("crawl.max_depth", 64)
	v.SetDefault("crawl.max_file_size", 512*1024)
	v.SetDefault("crawl.folder_overflow", "skip")

	v.SetDefault("retrieval.top_k", constants.DefaultTopK)
	v.SetDefault("retrieval.folders", true)
	v.SetDefault("retrieval.files", true)
}

// Load reads the config file at GetConfigPath.
func Load() (*Config, error) {
	return LoadFrom(configPath)
}

// LoadFrom reads path, applies TREEQA_* environment overrides and any .env
// file in the working directory, and validates the result. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(configPath)
}

func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func providerNames(llmOnly bool) []any {
	var out []any
	for _, p := range constants.AllProviders {
		if llmOnly && !p.SupportsLLM {
			continue
		}
		out = append(out, string(p.Name))
	}
	return out
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(providerNames(true)...)),
		validation.Field(&c.ContextWindow, validation.Required, validation.Min(2)),
		validation.Field(&c.MaxOutputTokens, validation.Required, validation.Min(1),
			validation.Max(c.ContextWindow-1).Error("must be smaller than context_window")),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Embedding),
		validation.Field(&c.Cache),
		validation.Field(&c.Crawl),
		validation.Field(&c.Retrieval),
	)
}

func (e EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Provider, validation.In(providerNames(false)...)),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In("file", "sqlite", "memory")),
	)
}

func (c CrawlConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.MaxDepth, validation.Min(1)),
		validation.Field(&c.MaxFileSize, validation.Min(int64(1))),
		validation.Field(&c.FolderOverflow, validation.In("", "skip", "split")),
	)
}

func (r RetrievalConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TopK, validation.Min(1)),
	)
}

// LLMModel returns the configured model or the provider default.
func (c *Config) LLMModel() string {
	if c.Model != "" {
		return c.Model
	}
	return constants.GetDefaultModel(constants.Provider(c.Provider))
}

// EmbeddingProvider returns the embedding provider, falling back to the
// completion provider when it can embed.
func (c *Config) EmbeddingProvider() string {
	if c.Embedding.Provider != "" {
		return c.Embedding.Provider
	}
	if constants.ProviderSupportsEmbeddings(constants.Provider(c.Provider)) {
		return c.Provider
	}
	return string(constants.ProviderOllama)
}

// EmbeddingModel returns the configured embedding model or the default
// for EmbeddingProvider.
func (c *Config) EmbeddingModel() string {
	if c.Embedding.Model != "" {
		return c.Embedding.Model
	}
	return constants.GetDefaultEmbeddingModel(constants.Provider(c.EmbeddingProvider()))
}

// CachePath returns the configured cache path or the backend default.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return DefaultCachePath(c.Cache.Backend)
}

func (c *Config) GetAPIKey(provider string) string {
	var key string
	switch constants.Provider(provider) {
	case constants.ProviderAnthropic:
		key = c.AnthropicAPIKey
	case constants.ProviderOpenAI:
		key = c.OpenAIAPIKey
	case constants.ProviderOpenRouter:
		key = c.OpenRouterAPIKey
	case constants.ProviderGemini:
		key = c.GeminiAPIKey
	case constants.ProviderVoyageAI:
		key = c.VoyageAIAPIKey
	case constants.ProviderBedrock:
		// Bedrock uses AWS credentials
		key = c.AWSAccessKeyID
	default:
		return ""
	}
	if key != "" {
		return key
	}
	if env := constants.GetProviderSetupInfo(constants.Provider(provider)).APIKeyEnv; env != "" {
		return os.Getenv(env)
	}
	return ""
}

// SetAPIKey stores key for provider.
func (c *Config) SetAPIKey(provider, key string) {
	switch constants.Provider(provider) {
	case constants.ProviderAnthropic:
		c.AnthropicAPIKey = key
	case constants.ProviderOpenAI:
		c.OpenAIAPIKey = key
	case constants.ProviderOpenRouter:
		c.OpenRouterAPIKey = key
	case constants.ProviderGemini:
		c.GeminiAPIKey = key
	case constants.ProviderVoyageAI:
		c.VoyageAIAPIKey = key
	case constants.ProviderBedrock:
		c.AWSAccessKeyID = key
	}
}

func (c *Config) HasProvider(provider string) bool {
	switch constants.Provider(provider) {
	case constants.ProviderOllama:
		return true
	case constants.ProviderBedrock:
		secret := c.AWSSecretAccessKey
		if secret == "" {
			secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		return c.GetAPIKey(provider) != "" && secret != ""
	default:
		return c.GetAPIKey(provider) != ""
	}
}
