// Package provider defines the uniform contract every AI vendor adapter
// implements. Adapters translate this shape into vendor-specific calls
// and back; they never retry and never persist anything.
package provider

import "context"

// Message is a single conversational turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is the uniform generation request.
type Request struct {
	Messages    []Message
	System      string
	MaxTokens   int64
	Temperature *float64
}

// Response is the uniform generation response. Model is the identifier
// of the model that actually produced the content, which the caller
// uses for cost attribution.
type Response struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
	StopReason   string
}

// Adapter wraps one vendor's text-generation API. Rate-limit-class
// failures must be returned as resilience.RateLimitError so the
// orchestrator can dispatch its fallback without parsing vendor text.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req Request, model string) (*Response, error)
}

// Registry maps provider names to initialized adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for a provider name, or nil.
func (r *Registry) Get(name string) Adapter {
	return r.adapters[name]
}
