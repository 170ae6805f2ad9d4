package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"no model", Config{Provider: ProviderOllama}, "no model"},
		{"openai key", Config{Provider: ProviderOpenAI, Model: "m"}, "API key"},
		{"anthropic key", Config{Provider: ProviderAnthropic, Model: "m"}, "API key"},
		{"bedrock creds", Config{Provider: ProviderBedrock, Model: "m"}, "AWS credentials"},
		{"unknown", Config{Provider: "nope", Model: "m"}, "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c, err := NewClient(NewConfig(ProviderOllama))
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig(ProviderOpenAI, WithModel("gpt-4o"), WithTimeout(5*time.Second))
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestOllamaClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		require.NotNil(t, req.Options)
		assert.Equal(t, 2048, req.Options.NumPredict)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "  hi there \n", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1", srv.Client())
	got, err := c.Complete(context.Background(), "hello", 2048)
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"max_tokens":100`)
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"answer"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini", srv.Client())
	got, err := c.Complete(context.Background(), "q", 100)
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
}

func TestOpenAIClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited","code":"rate_limit"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "m", srv.Client()).Complete(context.Background(), "q", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAnthropicClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, anthropicDefaultMaxTokens, req.MaxTokens)
		io.WriteString(w, `{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`)
	}))
	defer srv.Close()

	got, err := NewAnthropicClient(srv.URL, "key", "claude", srv.Client()).Complete(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, "part one part two", got)
}

func TestBedrockClient_SignsRequest(t *testing.T) {
	c := NewBedrockClient("AKID", "secret", "us-west-2", "m", nil)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodPost, "https://bedrock-runtime.us-west-2.amazonaws.com/model/m/invoke", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, []byte("{}"))

	auth := req.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKID/20240102/us-west-2/bedrock/aws4_request"))
	assert.Contains(t, auth, "SignedHeaders=content-type;host;x-amz-content-sha256;x-amz-date")
	assert.Equal(t, "20240102T030405Z", req.Header.Get("x-amz-date"))
	assert.Equal(t, sha256Hash([]byte("{}")), req.Header.Get("x-amz-content-sha256"))
}

func TestOpenAIEmbedder_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		io.WriteString(w, `{"data":[{"embedding":[2,2],"index":1},{"embedding":[1,1],"index":0}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "k", "", srv.Client())
	got, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, got)
}

func TestOpenAIEmbedder_MissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"embedding":[1],"index":0}]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "k", "", srv.Client()).EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestOllamaEmbedder_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"x", "y"}, req.Input)
		io.WriteString(w, `{"embeddings":[[0.1],[0.2]]}`)
	}))
	defer srv.Close()

	got, err := NewOllamaEmbedder(srv.URL, "", srv.Client()).EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1}, {0.2}}, got)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(Config{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)

	_, err = NewEmbedder(Config{Provider: ProviderAnthropic})
	assert.Error(t, err)

	_, err = NewEmbedder(Config{Provider: ProviderVoyageAI})
	assert.Error(t, err)
}
