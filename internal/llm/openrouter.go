package llm

import (
	"context"
	"net/http"
	"strings"
)

var openRouterHeaders = map[string]string{
	"HTTP-Referer": "https://github.com/ishaan812/treeqa",
	"X-Title":      "treeqa",
}

// OpenRouterClient is an OpenAI-compatible client with OpenRouter's
// attribution headers.
type OpenRouterClient struct {
	inner *OpenAIClient
}

func NewOpenRouterClient(baseURL, apiKey, model string, httpClient *http.Client) *OpenRouterClient {
	inner := NewOpenAIClient(baseURL, apiKey, model, httpClient)
	inner.headers = openRouterHeaders
	return &OpenRouterClient{inner: inner}
}

func (c *OpenRouterClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.inner.Complete(ctx, prompt, maxTokens)
}

// OpenRouterEmbedder uses OpenRouter's embedding endpoint
type OpenRouterEmbedder struct {
	inner *OpenAIEmbedder
}

func NewOpenRouterEmbedder(baseURL, apiKey, model string, httpClient *http.Client) *OpenRouterEmbedder {
	inner := NewOpenAIEmbedder(baseURL, apiKey, model, httpClient)
	inner.headers = openRouterHeaders
	return &OpenRouterEmbedder{inner: inner}
}

func (e *OpenRouterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.inner.Embed(ctx, text)
}

func (e *OpenRouterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *OpenRouterEmbedder) Dimensions() int {
	if strings.Contains(e.inner.model, "text-embedding-3-large") {
		return 3072
	}
	return 1536
}
