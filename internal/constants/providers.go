package constants

import "strings"

// Provider represents an LLM provider type
type Provider string

// LLM Providers
const (
	ProviderOllama     Provider = "ollama"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderOpenRouter Provider = "openrouter"
	ProviderBedrock    Provider = "bedrock"
	ProviderGemini     Provider = "gemini"
	ProviderVoyageAI   Provider = "voyageai" // Embeddings only
)

// ProviderInfo contains display information about a provider
type ProviderInfo struct {
	Name               Provider
	Description        string
	SupportsLLM        bool
	SupportsEmbeddings bool
}

// AllProviders returns all available providers in display order
var AllProviders = []ProviderInfo{
	{
		Name:               ProviderOllama,
		Description:        "Free, local, private: Llama, DeepSeek, Qwen3",
		SupportsLLM:        true,
		SupportsEmbeddings: true,
	},
	{
		Name:               ProviderAnthropic,
		Description:        "Claude Opus, Sonnet, Haiku",
		SupportsLLM:        true,
		SupportsEmbeddings: false, // Anthropic recommends Voyage AI
	},
	{
		Name:               ProviderOpenAI,
		Description:        "GPT-5.2, GPT-4o",
		SupportsLLM:        true,
		SupportsEmbeddings: true,
	},
	{
		Name:               ProviderOpenRouter,
		Description:        "Unified API: Gemini, Claude, GPT, Llama & free models",
		SupportsLLM:        true,
		SupportsEmbeddings: true,
	},
	{
		Name:               ProviderGemini,
		Description:        "Google Gemini: Flash, Pro, 1M context",
		SupportsLLM:        true,
		SupportsEmbeddings: true,
	},
	{
		Name:               ProviderBedrock,
		Description:        "Claude via AWS (enterprise)",
		SupportsLLM:        true,
		SupportsEmbeddings: false,
	},
	{
		Name:               ProviderVoyageAI,
		Description:        "Voyage AI embeddings (voyage-code-3)",
		SupportsLLM:        false,
		SupportsEmbeddings: true,
	},
}

// GetProviderInfo returns information about a provider
func GetProviderInfo(provider Provider) *ProviderInfo {
	for _, p := range AllProviders {
		if strings.EqualFold(string(p.Name), string(provider)) {
			return &p
		}
	}
	return nil
}

// LLMProviders returns the providers that can answer prompts.
func LLMProviders() []ProviderInfo {
	var out []ProviderInfo
	for _, p := range AllProviders {
		if p.SupportsLLM {
			out = append(out, p)
		}
	}
	return out
}

// EmbeddingProviders returns the providers that can embed text.
func EmbeddingProviders() []ProviderInfo {
	var out []ProviderInfo
	for _, p := range AllProviders {
		if p.SupportsEmbeddings {
			out = append(out, p)
		}
	}
	return out
}

// ProviderSupportsEmbeddings checks if a provider supports embeddings
func ProviderSupportsEmbeddings(provider Provider) bool {
	info := GetProviderInfo(provider)
	if info == nil {
		return false
	}
	return info.SupportsEmbeddings
}

// ProviderSetupInfo holds setup/configuration metadata for a provider
type ProviderSetupInfo struct {
	APIKeyEnv   string // Environment variable consulted when no key is configured
	Placeholder string // Input placeholder text
	SetupHint   string // Help text shown during setup
	NeedsAPIKey bool   // Whether this provider requires an API key
}

// GetProviderSetupInfo returns setup metadata for a provider
func GetProviderSetupInfo(provider Provider) ProviderSetupInfo {
	switch provider {
	case ProviderOllama:
		return ProviderSetupInfo{
			Placeholder: "http://localhost:11434",
			SetupHint:   "Ollama runs locally on your machine. Make sure it's running: ollama serve",
		}
	case ProviderAnthropic:
		return ProviderSetupInfo{
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			Placeholder: "sk-ant-...",
			SetupHint:   "Get your API key from: console.anthropic.com",
			NeedsAPIKey: true,
		}
	case ProviderOpenAI:
		return ProviderSetupInfo{
			APIKeyEnv:   "OPENAI_API_KEY",
			Placeholder: "sk-...",
			SetupHint:   "Get your API key from: platform.openai.com/api-keys",
			NeedsAPIKey: true,
		}
	case ProviderOpenRouter:
		return ProviderSetupInfo{
			APIKeyEnv:   "OPENROUTER_API_KEY",
			Placeholder: "sk-or-...",
			SetupHint:   "Get your API key from: openrouter.ai/keys",
			NeedsAPIKey: true,
		}
	case ProviderBedrock:
		return ProviderSetupInfo{
			APIKeyEnv:   "AWS_ACCESS_KEY_ID",
			Placeholder: "AWS Access Key ID",
			SetupHint:   "AWS Bedrock requires IAM credentials with Bedrock access.",
			NeedsAPIKey: true,
		}
	case ProviderGemini:
		return ProviderSetupInfo{
			APIKeyEnv:   "GEMINI_API_KEY",
			Placeholder: "AIza...",
			SetupHint:   "Get your API key from: aistudio.google.com/apikey",
			NeedsAPIKey: true,
		}
	case ProviderVoyageAI:
		return ProviderSetupInfo{
			APIKeyEnv:   "VOYAGE_API_KEY",
			Placeholder: "pa-...",
			SetupHint:   "Get your API key from: dash.voyageai.com",
			NeedsAPIKey: true,
		}
	default:
		return ProviderSetupInfo{}
	}
}
