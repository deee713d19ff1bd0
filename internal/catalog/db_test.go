package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	models []ModelDescriptor
	err    error
	calls  int
}

func (f *fakeSource) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	f.calls++
	return f.models, f.err
}

func TestDBRefreshesFromSource(t *testing.T) {
	t.Parallel()
	src := &fakeSource{models: []ModelDescriptor{
		{Provider: "anthropic", ID: "custom-model", Label: "Custom", InputPerMTok: 1, OutputPerMTok: 2, Tier: TierFast, Active: true},
	}}
	cat := NewDB(src, time.Minute)

	m, ok := cat.Resolve("custom-model")
	require.True(t, ok)
	assert.Equal(t, "Custom", m.Label)

	// Within the TTL the cached snapshot is reused.
	cat.Label("custom-model")
	cat.Active()
	assert.Equal(t, 1, src.calls)
}

func TestDBSourceFailureFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	src := &fakeSource{err: eris.New("connection refused")}
	cat := NewDB(src, time.Minute)

	// Static defaults carry the run even when the source is down.
	_, ok := cat.Resolve("claude-sonnet-4-20250514")
	assert.True(t, ok)
	assert.InDelta(t, 0.0105, cat.Cost("claude-sonnet-4-20250514", 1000, 500), 1e-6)
}

func TestDBSourceFailureKeepsLastGoodSnapshot(t *testing.T) {
	t.Parallel()
	src := &fakeSource{models: []ModelDescriptor{
		{Provider: "google", ID: "db-only-model", Label: "DB Only", InputPerMTok: 1, OutputPerMTok: 2, Tier: TierFast, Active: true},
	}}
	cat := NewDB(src, time.Nanosecond) // force refresh on every lookup

	_, ok := cat.Resolve("db-only-model")
	require.True(t, ok)

	src.models = nil
	src.err = eris.New("connection refused")
	time.Sleep(time.Millisecond)

	// Last good snapshot wins over static defaults.
	_, ok = cat.Resolve("db-only-model")
	assert.True(t, ok)
}

func TestDBFailedRefreshIsNegativelyCached(t *testing.T) {
	t.Parallel()
	src := &fakeSource{err: eris.New("connection refused")}
	cat := NewDB(src, time.Minute)

	// A down source is queried once, then backed off; later lookups
	// serve the fallback without hitting it again.
	cat.Cost("claude-sonnet-4-20250514", 1000, 500)
	cat.Label("claude-sonnet-4-20250514")
	cat.Active()
	assert.Equal(t, 1, src.calls)
}

func TestDBEmptySourceTreatedAsFailure(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	cat := NewDB(src, time.Minute)

	assert.NotEmpty(t, cat.Active())
}
