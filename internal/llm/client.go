package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ishaan812/treeqa/internal/constants"
)

// Client defines the interface for LLM operations. maxTokens bounds the
// completion length; zero lets the provider choose.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func (f ClientFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Provider represents an LLM provider type.
type Provider = constants.Provider

const (
	ProviderOllama     = constants.ProviderOllama
	ProviderOpenAI     = constants.ProviderOpenAI
	ProviderAnthropic  = constants.ProviderAnthropic
	ProviderBedrock    = constants.ProviderBedrock
	ProviderOpenRouter = constants.ProviderOpenRouter
	ProviderGemini     = constants.ProviderGemini
	ProviderVoyageAI   = constants.ProviderVoyageAI
)

const defaultRequestTimeout = 120 * time.Second

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider           Provider
	Model              string
	BaseURL            string
	APIKey             string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	Timeout            time.Duration
}

// Option is a functional option for configuring LLM clients.
type Option func(*Config)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithAWSCredentials sets AWS credentials.
func WithAWSCredentials(accessKeyID, secretAccessKey, region string) Option {
	return func(c *Config) {
		c.AWSAccessKeyID = accessKeyID
		c.AWSSecretAccessKey = secretAccessKey
		c.AWSRegion = region
	}
}

// NewConfig returns the provider defaults with opts applied.
func NewConfig(provider Provider, opts ...Option) Config {
	cfg := Config{Provider: provider, Timeout: defaultRequestTimeout}
	if mc, ok := constants.DefaultModels[provider]; ok {
		cfg.Model = mc.LLMModel
		cfg.BaseURL = mc.BaseURL
		cfg.AWSRegion = mc.AWSRegion
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) baseURLOr(def string) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return def
}

// NewClient creates an LLM client from config.
func NewClient(cfg Config) (Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model specified for provider %q; run 'treeqa configure'", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaClient(cfg.baseURLOr("http://localhost:11434"), cfg.Model, cfg.httpClient()), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIClient(cfg.baseURLOr("https://api.openai.com/v1"), cfg.APIKey, cfg.Model, cfg.httpClient()), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required")
		}
		return NewAnthropicClient(cfg.baseURLOr("https://api.anthropic.com/v1"), cfg.APIKey, cfg.Model, cfg.httpClient()), nil
	case ProviderBedrock:
		if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
			return nil, fmt.Errorf("AWS credentials are required for Bedrock")
		}
		if cfg.AWSRegion == "" {
			return nil, fmt.Errorf("AWS region is required for Bedrock; run 'treeqa configure'")
		}
		return NewBedrockClient(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSRegion, cfg.Model, cfg.httpClient()), nil
	case ProviderOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenRouter API key is required")
		}
		return NewOpenRouterClient(cfg.baseURLOr("https://openrouter.ai/api/v1"), cfg.APIKey, cfg.Model, cfg.httpClient()), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// AvailableProviders returns supported LLM providers.
func AvailableProviders() []Provider {
	var providers []Provider
	for _, p := range constants.LLMProviders() {
		providers = append(providers, p.Name)
	}
	return providers
}
