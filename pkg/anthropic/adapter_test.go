package anthropic

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/atelier-labs/campaign-engine/internal/provider"
)

type fakeClient struct {
	resp *MessageResponse
	err  error
	reqs []MessageRequest
}

func (f *fakeClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestAdapterGenerate(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: &MessageResponse{
		Content:    "hello there",
		Model:      "claude-sonnet-4-20250514",
		StopReason: "end_turn",
		Usage:      TokenUsage{InputTokens: 12, OutputTokens: 4},
	}}
	a := NewAdapter(client)

	temp := 0.5
	resp, err := a.Generate(context.Background(), provider.Request{
		System:      "be brief",
		Messages:    []provider.Message{{Role: "user", Content: "hi"}},
		MaxTokens:   256,
		Temperature: &temp,
	}, "claude-sonnet-4-20250514")
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(4), resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, "claude-sonnet-4-20250514", req.Model)
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, int64(256), req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
}

func TestAdapterDefaultMaxTokens(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: &MessageResponse{Content: "ok"}}
	a := NewAdapter(client)

	_, err := a.Generate(context.Background(), provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	}, "claude-3-5-haiku-20241022")
	require.NoError(t, err)

	assert.Equal(t, int64(defaultMaxTokens), client.reqs[0].MaxTokens)
}

func TestAdapterPropagatesErrors(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&fakeClient{err: eris.New("boom")})

	_, err := a.Generate(context.Background(), provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	}, "claude-3-5-haiku-20241022")
	assert.ErrorContains(t, err, "boom")
}

func TestAdapterLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	// A zero-rate limiter never admits; a cancelled context must unblock.
	a := NewAdapter(&fakeClient{resp: &MessageResponse{Content: "ok"}},
		WithLimiter(rate.NewLimiter(0, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Generate(ctx, provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	}, "claude-3-5-haiku-20241022")
	assert.ErrorContains(t, err, "limiter wait")
}

func TestAdapterName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "anthropic", NewAdapter(&fakeClient{}).Name())
}
