package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// geminiSDK lazily builds a shared genai client for completions and embeddings.
type geminiSDK struct {
	apiKey string

	once   sync.Once
	client *genai.Client
	err    error
}

func (s *geminiSDK) get(ctx context.Context) (*genai.Client, error) {
	s.once.Do(func() {
		s.client, s.err = genai.NewClient(ctx, &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  s.apiKey,
		})
		if s.err != nil {
			s.err = fmt.Errorf("failed to create Gemini client: %w", s.err)
		}
	})
	return s.client, s.err
}

// GeminiClient implements the Client interface using Google's official Gemini Go SDK.
type GeminiClient struct {
	sdk   *geminiSDK
	model string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{sdk: &geminiSDK{apiKey: apiKey}, model: model}
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	client, err := c.sdk.get(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if strings.Contains(c.model, "pro") {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingLevel: "HIGH",
		}
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}

// GeminiEmbedder embeds text through the genai EmbedContent API.
type GeminiEmbedder struct {
	sdk   *geminiSDK
	model string
}

func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiEmbedder{sdk: &geminiSDK{apiKey: apiKey}, model: model}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := e.sdk.get(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	result, err := client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

func (e *GeminiEmbedder) Dimensions() int {
	return 3072
}
