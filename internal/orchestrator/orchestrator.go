// Package orchestrator routes generation tasks to a cost/quality
// appropriate model, invokes the matching provider adapter, computes
// cost, and fans out post-success side effects.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/internal/provider"
	"github.com/atelier-labs/campaign-engine/internal/resilience"
)

// DefaultFallbackModel is the fixed fast/cheap model used for the
// one-shot retry after a rate-limit-class failure.
const DefaultFallbackModel = "claude-3-5-haiku-20241022"

// Result is the outcome of one executed task.
type Result struct {
	Content      string
	Model        catalog.ModelDescriptor
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Duration     time.Duration
	UsedFallback bool
}

// Execution is handed to post-success hooks after a task completes or
// fails. Response is nil for failures.
type Execution struct {
	Task     model.Task
	Record   *model.ExecutionRecord
	Response *provider.Response
}

// Hook runs after task completion. Hooks are best-effort: they log
// their own failures and never affect the generation result.
type Hook func(ctx context.Context, ex *Execution)

// Orchestrator selects models and executes tasks.
type Orchestrator struct {
	catalog       catalog.Catalog
	registry      *provider.Registry
	hooks         []Hook
	fallbackModel string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithHooks appends post-completion hooks.
func WithHooks(hooks ...Hook) Option {
	return func(o *Orchestrator) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithFallbackModel overrides the fixed rate-limit fallback model.
func WithFallbackModel(id string) Option {
	return func(o *Orchestrator) {
		o.fallbackModel = id
	}
}

// New creates an orchestrator over a catalog and adapter registry.
func New(cat catalog.Catalog, registry *provider.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:       cat,
		registry:      registry,
		fallbackModel: DefaultFallbackModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// candidateChains names the preferred models per priority for simple
// and medium tasks, tried in order through the active catalog.
var candidateChains = map[model.Priority][]string{
	model.PriorityCost:    {"claude-3-5-haiku-20241022", "gemini-2.5-flash-lite", "claude-sonnet-4-20250514"},
	model.PrioritySpeed:   {"gemini-2.5-flash-lite", "claude-3-5-haiku-20241022", "gemini-2.5-flash"},
	model.PriorityQuality: {"claude-sonnet-4-20250514", "gemini-2.5-pro", "claude-opus-4-20250514"},
}

// SelectModel picks a model for the given hints. Complex tasks always
// get the best-quality active model regardless of priority: a quality
// floor for hard tasks, not a bug. Simple and medium tasks walk the
// priority's candidate chain; when no named candidate is active the
// first active model in catalog order wins.
func (o *Orchestrator) SelectModel(complexity model.Complexity, priority model.Priority) (catalog.ModelDescriptor, error) {
	active := o.catalog.Active()
	if len(active) == 0 {
		return catalog.ModelDescriptor{}, eris.New("orchestrator: no active models in catalog")
	}

	if complexity == model.ComplexityComplex {
		for _, m := range active {
			if m.Tier == catalog.TierBest {
				return m, nil
			}
		}
		return active[0], nil
	}

	for _, id := range candidateChains[priority] {
		if m, ok := o.catalog.Resolve(id); ok && m.Active {
			return m, nil
		}
	}
	return active[0], nil
}

// resolveForced resolves an explicit model override. Missing or
// inactive models fail outright; an explicit choice gets no fallback.
func (o *Orchestrator) resolveForced(id string) (catalog.ModelDescriptor, error) {
	m, ok := o.catalog.Resolve(id)
	if !ok || !m.Active {
		return catalog.ModelDescriptor{}, eris.Errorf("orchestrator: model %q unavailable", id)
	}
	return m, nil
}

// Execute runs one task: select, invoke, cost, record. Rate-limit
// failures get exactly one fallback attempt against the fixed fallback
// model; every other failure propagates immediately.
func (o *Orchestrator) Execute(ctx context.Context, task model.Task) (*Result, error) {
	var selected catalog.ModelDescriptor
	var err error
	if task.ForceModel != "" {
		selected, err = o.resolveForced(task.ForceModel)
	} else {
		selected, err = o.SelectModel(task.Complexity, task.Priority)
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()

	resp, usedFallback, invokeErr := o.invoke(ctx, task, selected)
	if invokeErr != nil {
		o.recordFailure(ctx, task, selected, invokeErr, time.Since(start))
		return nil, invokeErr
	}

	respondedWith := selected
	if usedFallback {
		if fb, ok := o.catalog.Resolve(o.fallbackModel); ok {
			respondedWith = fb
		}
	}

	duration := time.Since(start)
	cost := o.catalog.Cost(respondedWith.ID, resp.InputTokens, resp.OutputTokens)

	result := &Result{
		Content:      resp.Content,
		Model:        respondedWith,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      cost,
		Duration:     duration,
		UsedFallback: usedFallback,
	}

	rec := &model.ExecutionRecord{
		UserID:        task.UserID,
		ClientID:      task.ClientID,
		ModelID:       respondedWith.ID,
		TaskType:      task.Type,
		Complexity:    task.Complexity,
		InputSummary:  model.Summarize(firstUserContent(task.Messages), 500),
		OutputSummary: model.Summarize(resp.Content, 500),
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		CostUSD:       cost,
		DurationMS:    duration.Milliseconds(),
		Status:        model.ExecutionSuccess,
		UsedFallback:  usedFallback,
		CreatedAt:     time.Now().UTC(),
	}
	o.runHooks(ctx, &Execution{Task: task, Record: rec, Response: resp})

	return result, nil
}

// invoke calls the primary adapter, falling back once on a rate-limit
// classification. ForceModel disables the fallback entirely.
func (o *Orchestrator) invoke(ctx context.Context, task model.Task, selected catalog.ModelDescriptor) (*provider.Response, bool, error) {
	req := toProviderRequest(task)

	adapter := o.registry.Get(selected.Provider)
	if adapter == nil {
		return nil, false, eris.Errorf("orchestrator: model %q unavailable: no %s adapter initialized", selected.ID, selected.Provider)
	}

	resp, err := adapter.Generate(ctx, req, selected.ID)
	if err == nil {
		return resp, false, nil
	}
	if task.ForceModel != "" || !resilience.IsRateLimited(err) {
		return nil, false, err
	}

	zap.L().Warn("orchestrator: primary model rate limited, trying fallback",
		zap.String("primary", selected.ID),
		zap.String("fallback", o.fallbackModel),
		zap.Error(err),
	)

	fb, ok := o.catalog.Resolve(o.fallbackModel)
	if !ok || !fb.Active {
		return nil, false, eris.Wrapf(err, "orchestrator: fallback model %q unavailable after rate limit", o.fallbackModel)
	}
	fbAdapter := o.registry.Get(fb.Provider)
	if fbAdapter == nil {
		return nil, false, eris.Wrapf(err, "orchestrator: no %s adapter for fallback after rate limit", fb.Provider)
	}

	fbResp, fbErr := fbAdapter.Generate(ctx, req, fb.ID)
	if fbErr != nil {
		return nil, false, eris.Errorf("orchestrator: primary %s failed (%s); fallback %s failed (%s)",
			selected.ID, err.Error(), fb.ID, fbErr.Error())
	}
	return fbResp, true, nil
}

// recordFailure emits a best-effort failure record through the hooks.
func (o *Orchestrator) recordFailure(ctx context.Context, task model.Task, selected catalog.ModelDescriptor, cause error, duration time.Duration) {
	rec := &model.ExecutionRecord{
		UserID:       task.UserID,
		ClientID:     task.ClientID,
		ModelID:      selected.ID,
		TaskType:     task.Type,
		Complexity:   task.Complexity,
		InputSummary: model.Summarize(firstUserContent(task.Messages), 500),
		DurationMS:   duration.Milliseconds(),
		Status:       model.ExecutionError,
		ErrorMessage: cause.Error(),
		CreatedAt:    time.Now().UTC(),
	}
	o.runHooks(ctx, &Execution{Task: task, Record: rec})
}

func (o *Orchestrator) runHooks(ctx context.Context, ex *Execution) {
	for _, h := range o.hooks {
		h(ctx, ex)
	}
}

func toProviderRequest(task model.Task) provider.Request {
	msgs := make([]provider.Message, len(task.Messages))
	for i, m := range task.Messages {
		msgs[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return provider.Request{
		Messages:    msgs,
		System:      task.System,
		MaxTokens:   task.MaxTokens,
		Temperature: task.Temperature,
	}
}

func firstUserContent(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role != "assistant" {
			return m.Content
		}
	}
	return ""
}
