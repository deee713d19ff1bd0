// Package catalog is the single authoritative registry of AI models and
// their pricing. Every component that selects a model or computes a cost
// goes through a Catalog, so rates cannot drift between subsystems.
package catalog

import (
	"math"

	"go.uber.org/zap"
)

// Tier buckets models by the quality/latency tradeoff they sit at.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierBest     Tier = "best"
)

// ModelDescriptor describes one model the orchestrator may route to.
// Pricing is USD per million tokens, matching vendor invoices.
type ModelDescriptor struct {
	Provider      string  `json:"provider"`
	ID            string  `json:"id"`
	Label         string  `json:"label"`
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
	Tier          Tier    `json:"tier"`
	Active        bool    `json:"active"`
}

// Catalog resolves model identifiers to descriptors and computes costs.
// Implementations must be safe for concurrent use and side-effect free:
// identical lookups always yield identical results.
type Catalog interface {
	// Resolve returns the descriptor for a model ID, active or not.
	Resolve(id string) (ModelDescriptor, bool)

	// Active returns active models in catalog order. The order is the
	// catalog's own; callers must not assume any other tie-break.
	Active() []ModelDescriptor

	// Cost computes USD for a token usage against the model's published
	// rates, rounded to 6 decimal places. Unknown models cost 0 and log
	// a warning; cost accounting must never block generation.
	Cost(id string, inputTokens, outputTokens int64) float64

	// Label returns the display label for a model, falling back to the
	// raw ID when the model is unknown.
	Label(id string) string
}

// Static is an in-memory Catalog over a fixed ordered set of models.
type Static struct {
	models []ModelDescriptor
	byID   map[string]ModelDescriptor
}

// NewStatic creates a Static catalog preserving the given order.
func NewStatic(models []ModelDescriptor) *Static {
	byID := make(map[string]ModelDescriptor, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	return &Static{models: models, byID: byID}
}

// Default returns the built-in model set used when no external catalog
// is configured or reachable.
func Default() *Static {
	return NewStatic([]ModelDescriptor{
		{Provider: "anthropic", ID: "claude-3-5-haiku-20241022", Label: "Claude Haiku 3.5", InputPerMTok: 0.80, OutputPerMTok: 4.00, Tier: TierFast, Active: true},
		{Provider: "anthropic", ID: "claude-sonnet-4-20250514", Label: "Claude Sonnet 4", InputPerMTok: 3.00, OutputPerMTok: 15.00, Tier: TierBalanced, Active: true},
		{Provider: "anthropic", ID: "claude-opus-4-20250514", Label: "Claude Opus 4", InputPerMTok: 15.00, OutputPerMTok: 75.00, Tier: TierBest, Active: true},
		{Provider: "google", ID: "gemini-2.5-flash-lite", Label: "Gemini 2.5 Flash Lite", InputPerMTok: 0.10, OutputPerMTok: 0.40, Tier: TierFast, Active: true},
		{Provider: "google", ID: "gemini-2.5-flash", Label: "Gemini 2.5 Flash", InputPerMTok: 0.30, OutputPerMTok: 2.50, Tier: TierBalanced, Active: true},
		{Provider: "google", ID: "gemini-2.5-pro", Label: "Gemini 2.5 Pro", InputPerMTok: 1.25, OutputPerMTok: 10.00, Tier: TierBest, Active: true},
	})
}

// Resolve implements Catalog.
func (s *Static) Resolve(id string) (ModelDescriptor, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// Active implements Catalog.
func (s *Static) Active() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(s.models))
	for _, m := range s.models {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

// Cost implements Catalog.
func (s *Static) Cost(id string, inputTokens, outputTokens int64) float64 {
	m, ok := s.byID[id]
	if !ok {
		zap.L().Warn("catalog: cost lookup for unknown model", zap.String("model", id))
		return 0
	}
	in := (float64(inputTokens) / 1e6) * m.InputPerMTok
	out := (float64(outputTokens) / 1e6) * m.OutputPerMTok
	return math.Round((in+out)*1e6) / 1e6
}

// Label implements Catalog.
func (s *Static) Label(id string) string {
	if m, ok := s.byID[id]; ok && m.Label != "" {
		return m.Label
	}
	return id
}
