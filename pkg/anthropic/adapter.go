package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/atelier-labs/campaign-engine/internal/provider"
)

const defaultMaxTokens = 4096

// Adapter implements provider.Adapter over a Client.
type Adapter struct {
	client  Client
	limiter *rate.Limiter
}

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithLimiter sets a client-side request limiter applied before every
// outbound call.
func WithLimiter(l *rate.Limiter) AdapterOption {
	return func(a *Adapter) {
		a.limiter = l
	}
}

// NewAdapter creates an Anthropic provider adapter.
func NewAdapter(client Client, opts ...AdapterOption) *Adapter {
	a := &Adapter{client: client}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Name implements provider.Adapter.
func (a *Adapter) Name() string { return "anthropic" }

// Generate implements provider.Adapter.
func (a *Adapter) Generate(ctx context.Context, req provider.Request, model string) (*provider.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "anthropic: limiter wait")
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	msgs := make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = Message{Role: m.Role, Content: m.Content}
	}

	resp, err := a.client.CreateMessage(ctx, MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    msgs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &provider.Response{
		Content:      resp.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		StopReason:   resp.StopReason,
	}, nil
}
