package constants

// ModelConfig holds model configuration for a provider
type ModelConfig struct {
	LLMModel       string
	EmbeddingModel string
	BaseURL        string
	AWSRegion      string
}

// DefaultModels contains default model configurations for each provider
var DefaultModels = map[Provider]ModelConfig{
	ProviderOllama: {
		LLMModel:       "llama3.1",
		EmbeddingModel: "nomic-embed-text",
		BaseURL:        "http://localhost:11434",
	},
	ProviderOpenAI: {
		LLMModel:       "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		BaseURL:        "https://api.openai.com/v1",
	},
	ProviderAnthropic: {
		LLMModel:       "claude-sonnet-4-5-20250929",
		EmbeddingModel: "", // Anthropic doesn't provide embeddings
	},
	ProviderOpenRouter: {
		LLMModel:       "openrouter/free",
		EmbeddingModel: "openai/text-embedding-3-small",
		BaseURL:        "https://openrouter.ai/api/v1",
	},
	ProviderBedrock: {
		LLMModel:       "anthropic.claude-sonnet-4-5-20250929-v1:0",
		EmbeddingModel: "",
		AWSRegion:      "us-east-1",
	},
	ProviderGemini: {
		LLMModel:       "gemini-2.5-flash",
		EmbeddingModel: "gemini-embedding-001",
	},
	ProviderVoyageAI: {
		LLMModel:       "", // Voyage AI is embeddings only
		EmbeddingModel: "voyage-code-3",
		BaseURL:        "https://api.voyageai.com/v1",
	},
}

// DefaultContextWindow and DefaultMaxOutputTokens mirror the small-window
// completion models the index was first built against. Larger models raise
// the window through config.
const (
	DefaultContextWindow   = 4096
	DefaultMaxOutputTokens = 2048
	DefaultTokenizer       = "cl100k_base"
	DefaultTopK            = 15
)

// contextWindows lists known context windows in tokens.
var contextWindows = map[string]int{
	"llama3.1":                   128000,
	"llama3.2":                   128000,
	"qwen3":                      32768,
	"gpt-4o":                     128000,
	"gpt-4o-mini":                128000,
	"gpt-5.2":                    400000,
	"claude-sonnet-4-5-20250929": 200000,
	"claude-haiku-4-5-20250929":  200000,
	"gemini-2.5-flash":           1048576,
	"gemini-2.5-pro":             1048576,
	"openrouter/free":            32768,
}

// ContextWindow returns the known context window for a model, or 0.
func ContextWindow(model string) int {
	return contextWindows[model]
}

// ModelOption represents a selectable model with metadata for prompts
type ModelOption struct {
	Model       string
	Description string
}

// GetLLMModels returns available LLM model options for a provider
func GetLLMModels(provider Provider) []ModelOption {
	return llmModels[provider]
}

// GetEmbeddingModels returns available embedding model options for a provider
func GetEmbeddingModels(provider Provider) []ModelOption {
	return embeddingModels[provider]
}

var llmModels = map[Provider][]ModelOption{
	ProviderOllama: {
		{Model: "llama3.1", Description: "Meta Llama 3.1 (default, recommended)"},
		{Model: "qwen3", Description: "Qwen3 (dense & MoE)"},
		{Model: "llama3.2", Description: "Meta Llama 3.2 (lightweight)"},
	},
	ProviderOpenAI: {
		{Model: "gpt-4o-mini", Description: "GPT-4o Mini (cheap, fast)"},
		{Model: "gpt-4o", Description: "GPT-4o (fast, multimodal)"},
		{Model: "gpt-5.2", Description: "GPT-5.2 (latest flagship)"},
	},
	ProviderAnthropic: {
		{Model: "claude-sonnet-4-5-20250929", Description: "Claude Sonnet 4.5 (balanced)"},
		{Model: "claude-haiku-4-5-20250929", Description: "Claude Haiku 4.5 (fast, cheap)"},
	},
	ProviderOpenRouter: {
		{Model: "openrouter/free", Description: "Auto-routing to best free model"},
		{Model: "anthropic/claude-sonnet-4-5", Description: "Claude Sonnet 4.5 (paid)"},
		{Model: "openai/gpt-4o-mini", Description: "GPT-4o Mini (paid, cheap)"},
	},
	ProviderBedrock: {
		{Model: "anthropic.claude-sonnet-4-5-20250929-v1:0", Description: "Claude Sonnet 4.5 (balanced)"},
		{Model: "anthropic.claude-haiku-4-5-20250929-v1:0", Description: "Claude Haiku 4.5 (fast, cheap)"},
	},
	ProviderGemini: {
		{Model: "gemini-2.5-flash", Description: "Gemini 2.5 Flash (default)"},
		{Model: "gemini-2.5-pro", Description: "Gemini 2.5 Pro (thinking)"},
	},
}

var embeddingModels = map[Provider][]ModelOption{
	ProviderOllama: {
		{Model: "nomic-embed-text", Description: "Nomic Embed (default, recommended)"},
		{Model: "mxbai-embed-large", Description: "MxBai Embed Large"},
	},
	ProviderOpenAI: {
		{Model: "text-embedding-3-small", Description: "Ada v3 Small (default, cheap)"},
		{Model: "text-embedding-3-large", Description: "Ada v3 Large (higher quality)"},
	},
	ProviderOpenRouter: {
		{Model: "openai/text-embedding-3-small", Description: "OpenAI Ada v3 Small (default)"},
	},
	ProviderGemini: {
		{Model: "gemini-embedding-001", Description: "Gemini Embedding (default)"},
	},
	ProviderVoyageAI: {
		{Model: "voyage-code-3", Description: "Voyage Code 3 (code specialist)"},
		{Model: "voyage-3.5", Description: "Voyage 3.5 (general)"},
	},
}

// GetDefaultModel returns the default LLM model for a provider
func GetDefaultModel(provider Provider) string {
	return DefaultModels[provider].LLMModel
}

// GetDefaultEmbeddingModel returns the default embedding model for a provider.
func GetDefaultEmbeddingModel(provider Provider) string {
	return DefaultModels[provider].EmbeddingModel
}

// GetDefaultBaseURL returns the default base URL for a provider
func GetDefaultBaseURL(provider Provider) string {
	return DefaultModels[provider].BaseURL
}
