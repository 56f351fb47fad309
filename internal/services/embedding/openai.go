package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// OpenAIProviderID identifies the OpenAI embedding provider
	OpenAIProviderID = "openai"
	// DefaultEmbeddingModel is the embedding model used unless overridden
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultEmbeddingTimeout bounds a single embeddings call
	DefaultEmbeddingTimeout = 10 * time.Second
)

// OpenAIProvider scores similarity with the OpenAI embeddings API
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIFactory returns a factory for the OpenAI provider. An empty
// api key fails at load time so the ensemble excludes the provider
// instead of erroring on every request.
func NewOpenAIFactory(apiKey, baseURL, model string) Factory {
	return func() (Provider, error) {
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key is not configured")
		}
		return NewOpenAIProvider(apiKey, baseURL, model), nil
	}
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultEmbeddingTimeout}),
	)

	return &OpenAIProvider{client: client, model: model}
}

// ID implements Provider
func (p *OpenAIProvider) ID() string { return OpenAIProviderID }

// Embed fetches the embedding vector for a text span
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings response contains no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Similarity implements Provider as cosine similarity of API embeddings.
// Both spans are fetched in one request to halve latency.
func (p *OpenAIProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{a, b},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to embed text pair: %w", err)
	}
	if len(resp.Data) < 2 {
		return 0, fmt.Errorf("embeddings response contains %d vectors, expected 2", len(resp.Data))
	}

	va := toFloat32(resp.Data[0].Embedding)
	vb := toFloat32(resp.Data[1].Embedding)
	return CosineSimilarity(va, vb), nil
}

func toFloat32(raw []float64) []float32 {
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec
}
