// Package retrieval performs vector-similarity search over the shared
// marketing framework corpus. Retrieval is a soft dependency for
// generation: every failure path here degrades to an empty result
// rather than an error.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/embedding"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// Default search parameters.
const (
	DefaultThreshold = 0.7
	DefaultLimit     = 5
)

// Corpus is the slice of the store the searcher needs.
type Corpus interface {
	MatchFrameworkChunks(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]model.FrameworkChunk, error)
	GetFrameworks(ctx context.Context, ids []string) ([]model.Framework, error)
}

// Searcher embeds queries and searches the framework corpus.
type Searcher struct {
	embedder embedding.Service
	corpus   Corpus
}

// NewSearcher creates a framework searcher.
func NewSearcher(embedder embedding.Service, corpus Corpus) *Searcher {
	return &Searcher{embedder: embedder, corpus: corpus}
}

// Search embeds the query (query variant) and returns chunks with
// similarity >= threshold, ordered by descending similarity, at most
// limit entries. Returns an empty slice when embedding or the search
// backend fails; it never returns an error.
func (s *Searcher) Search(ctx context.Context, query string, threshold float64, limit int) []model.FrameworkChunk {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec, err := s.embedder.EmbedForQuery(ctx, query)
	if err != nil {
		zap.L().Warn("retrieval: query embedding failed, skipping framework search",
			zap.Error(err),
		)
		return nil
	}

	chunks, err := s.corpus.MatchFrameworkChunks(ctx, vec, threshold, limit)
	if err != nil {
		zap.L().Warn("retrieval: similarity search failed",
			zap.Error(err),
		)
		return nil
	}
	return chunks
}

// RelevantFrameworks returns full framework documents whose chunks
// match the query, for inclusion in a prompt. Soft like Search: an
// empty slice on any failure.
func (s *Searcher) RelevantFrameworks(ctx context.Context, query string, threshold float64, count int) []model.Framework {
	// Over-fetch chunks: several chunks can map to one framework.
	chunks := s.Search(ctx, query, threshold, count*3)
	if len(chunks) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, ch := range chunks {
		if seen[ch.FrameworkID] {
			continue
		}
		seen[ch.FrameworkID] = true
		ids = append(ids, ch.FrameworkID)
		if len(ids) == count {
			break
		}
	}

	frameworks, err := s.corpus.GetFrameworks(ctx, ids)
	if err != nil {
		zap.L().Warn("retrieval: loading framework documents failed",
			zap.Error(err),
		)
		return nil
	}
	return frameworks
}
