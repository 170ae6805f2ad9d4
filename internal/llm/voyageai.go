package llm

import (
	"context"
	"net/http"
	"strings"
)

// VoyageAIEmbedder uses Voyage AI's embedding endpoint
// Voyage AI is recommended by Anthropic for embeddings
type VoyageAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewVoyageAIEmbedder(baseURL, apiKey, model string, httpClient *http.Client) *VoyageAIEmbedder {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &VoyageAIEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httpClient,
	}
}

func (e *VoyageAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *VoyageAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return postEmbeddings(ctx, e.client, e.baseURL, e.apiKey, nil, openAIEmbedRequest{
		Model:     e.model,
		Input:     texts,
		InputType: "document",
	})
}

func (e *VoyageAIEmbedder) Dimensions() int {
	// Default to 1024 for Voyage 3.x models
	return 1024
}
