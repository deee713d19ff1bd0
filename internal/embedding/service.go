// Package embedding converts text to fixed-length vectors via a remote
// embedding model. A missing API key degrades the feature instead of
// crashing: every call returns ErrDisabled and callers carry on without
// retrieval.
package embedding

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned when the service was constructed without an
// API key. Callers treat it as "feature degraded", not a crash.
var ErrDisabled = eris.New("embedding: service disabled (no API key)")

const defaultModel = "text-embedding-3-small"

// Service generates embeddings. It never retries; the caller decides.
type Service interface {
	// Embed generates a vector for a single document text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple document texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedForQuery generates a vector for a retrieval query. Kept as a
	// distinct entry point because some embedding models want a
	// different task-type hint for queries than for documents; callers
	// doing similarity search must use this variant.
	EmbedForQuery(ctx context.Context, text string) ([]float32, error)
}

// Option configures the service.
type Option func(*service)

// WithModel overrides the default embedding model.
func WithModel(model string) Option {
	return func(s *service) {
		s.model = model
	}
}

// WithBaseURL overrides the API base URL (any OpenAI-compatible
// embeddings endpoint).
func WithBaseURL(url string) Option {
	return func(s *service) {
		s.baseURL = url
	}
}

type service struct {
	client  *openai.Client
	model   string
	baseURL string
}

// New creates an embedding service. An empty API key yields a disabled
// service whose calls return ErrDisabled.
func New(apiKey string, opts ...Option) Service {
	s := &service{model: defaultModel}
	for _, o := range opts {
		o(s)
	}

	if apiKey == "" {
		return s
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	s.client = openai.NewClientWithConfig(cfg)
	return s
}

func (s *service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.client == nil {
		return nil, ErrDisabled
	}
	if len(texts) == 0 {
		return nil, eris.New("embedding: no texts provided")
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("embedding: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (s *service) EmbedForQuery(ctx context.Context, text string) ([]float32, error) {
	// The OpenAI embedding family uses the same representation for
	// queries and documents, so no hint is attached here. The separate
	// entry point keeps retrieval callers correct if the model is ever
	// swapped for one that distinguishes task types.
	return s.Embed(ctx, text)
}
