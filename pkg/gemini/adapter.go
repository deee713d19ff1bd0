package gemini

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/atelier-labs/campaign-engine/internal/provider"
)

// Adapter implements provider.Adapter over a Client using plain
// (non-grounded) generation.
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

// NewAdapter creates a Gemini provider adapter.
func NewAdapter(client Client, opts ...AdapterOption) *Adapter {
	a := &Adapter{client: client}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Name implements provider.Adapter.
func (a *Adapter) Name() string { return "google" }

// Generate implements provider.Adapter. The Gemini API takes a single
// prompt rather than a message list, so conversational turns are
// flattened with role prefixes.
func (a *Adapter) Generate(ctx context.Context, req provider.Request, model string) (*provider.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "gemini: limiter wait")
		}
	}

	resp, err := a.client.GenerateText(ctx, TextRequest{
		Model:       model,
		Prompt:      flattenMessages(req.Messages),
		System:      req.System,
		MaxTokens:   int32(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &provider.Response{
		Content:      resp.Content,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

func flattenMessages(msgs []provider.Message) string {
	if len(msgs) == 1 && msgs[0].Role != "assistant" {
		return msgs[0].Content
	}
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
