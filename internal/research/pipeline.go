package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/internal/retrieval"
	"github.com/atelier-labs/campaign-engine/pkg/gemini"
)

// Phase names the stages of a research run, surfaced to callers via
// the progress observer so the UI never blocks silently.
type Phase string

const (
	PhaseInitializing        Phase = "initializing"
	PhaseGeneratingQueries   Phase = "generating_queries"
	PhaseSearchingFrameworks Phase = "searching_frameworks"
	PhaseGatheringClientData Phase = "gathering_client_data"
	PhaseGeneratingReport    Phase = "generating_report"
	PhaseComplete            Phase = "complete"
	PhaseError               Phase = "error"
)

// depthSpec fixes the per-tier knobs: grounded model, framework count,
// and output token ceiling.
type depthSpec struct {
	modelID        string
	frameworkCount int
	maxTokens      int32
}

var depthSpecs = map[model.Depth]depthSpec{
	model.DepthQuick:         {modelID: "gemini-2.5-flash-lite", frameworkCount: 2, maxTokens: 2048},
	model.DepthStandard:      {modelID: "gemini-2.5-flash", frameworkCount: 3, maxTokens: 4096},
	model.DepthComprehensive: {modelID: "gemini-2.5-pro", frameworkCount: 5, maxTokens: 8192},
}

// Params describes one research request.
type Params struct {
	Topic        string      `json:"topic"`
	UserID       string      `json:"user_id"`
	ClientID     string      `json:"client_id,omitempty"`
	Depth        model.Depth `json:"depth"`
	UseWebSearch bool        `json:"use_web_search"`
	TemplateIDs  []string    `json:"prompt_template_ids,omitempty"`
}

// Repository is the slice of the store the pipeline needs.
type Repository interface {
	ClientSource
	TemplateSource
	InsertContentAsset(ctx context.Context, asset *model.ContentAsset) (string, error)
	InsertExecution(ctx context.Context, rec *model.ExecutionRecord) error
}

// Pipeline runs deep research: retrieval-grounded context plus a
// web-search-grounded generation, persisted with full provenance.
type Pipeline struct {
	gem      gemini.Client
	searcher *retrieval.Searcher
	repo     Repository
	catalog  catalog.Catalog
	progress func(Phase)
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithProgress sets the phase observer.
func WithProgress(fn func(Phase)) PipelineOption {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// NewPipeline creates a research pipeline.
func NewPipeline(gem gemini.Client, searcher *retrieval.Searcher, repo Repository, cat catalog.Catalog, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{gem: gem, searcher: searcher, repo: repo, catalog: cat}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) phase(ph Phase) {
	if p.progress != nil {
		p.progress(ph)
	}
}

// Perform runs the full research sequence. Web grounding is mandatory:
// a research report is never silently produced without it, so
// UseWebSearch=false and grounded-call failures both error out.
// Persistence happens only after a complete report, so a cancelled run
// never leaves a partial asset behind.
func (p *Pipeline) Perform(ctx context.Context, params Params) (*model.ResearchResult, error) {
	if strings.TrimSpace(params.Topic) == "" {
		return nil, eris.New("research: topic is required")
	}
	if !params.Depth.Valid() {
		return nil, eris.Errorf("research: unknown depth %q", params.Depth)
	}
	if !params.UseWebSearch {
		return nil, eris.New("research: web search is required; refusing to generate an ungrounded report")
	}

	p.phase(PhaseInitializing)
	spec := depthSpecs[params.Depth]

	// Client context first; the framework block substitutes its values.
	// The lookup is a soft input: on failure the report proceeds without
	// personalization, same as the planner.
	p.phase(PhaseGatheringClientData)
	var clientCtx *model.ClientContext
	if params.ClientID != "" {
		if client, err := p.repo.GetClient(ctx, params.ClientID); err != nil {
			zap.L().Warn("research: client lookup failed",
				zap.String("client_id", params.ClientID),
				zap.Error(err),
			)
		} else {
			clientCtx = client.DeriveContext()
		}
	}

	p.phase(PhaseSearchingFrameworks)
	frameworks := p.searcher.RelevantFrameworks(ctx, params.Topic, retrieval.DefaultThreshold, spec.frameworkCount)
	frameworkBlock := retrieval.FormatForPrompt(frameworks, clientCtx)
	frameworkIDs := make([]string, 0, len(frameworks))
	for _, f := range frameworks {
		frameworkIDs = append(frameworkIDs, f.ID)
	}

	templateBlock, err := p.templateBlock(ctx, params.TemplateIDs)
	if err != nil {
		p.phase(PhaseError)
		return nil, err
	}

	p.phase(PhaseGeneratingQueries)
	prompt := buildResearchPrompt(params.Topic, params.Depth, clientCtx, frameworkBlock, templateBlock)

	p.phase(PhaseGeneratingReport)
	temp := 0.7
	resp, err := p.gem.GenerateGrounded(ctx, gemini.TextRequest{
		Model:       spec.modelID,
		Prompt:      prompt,
		System:      researchSystemPrompt,
		MaxTokens:   spec.maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		p.phase(PhaseError)
		return nil, eris.Wrap(err, "research: grounded generation failed")
	}
	if strings.TrimSpace(resp.Content) == "" {
		p.phase(PhaseError)
		return nil, eris.New("research: grounded generation returned an empty report")
	}

	cost := p.catalog.Cost(spec.modelID, resp.InputTokens, resp.OutputTokens)

	result := &model.ResearchResult{
		Report:           resp.Content,
		ModelUsed:        p.catalog.Label(spec.modelID) + " (web-grounded)",
		CostUSD:          cost,
		InputTokens:      resp.InputTokens,
		OutputTokens:     resp.OutputTokens,
		FrameworksUsed:   frameworkIDs,
		SearchQueries:    resp.SearchQueries,
		GroundingSupport: resp.GroundingSupport,
		GeneratedAt:      time.Now().UTC(),
	}
	for _, src := range resp.Sources {
		result.WebSources = append(result.WebSources, model.WebSource{Title: src.Title, URL: src.URL})
	}

	assetID, err := p.persist(ctx, params, result)
	if err != nil {
		p.phase(PhaseError)
		return nil, err
	}
	result.SavedAssetID = assetID

	p.logExecution(ctx, params, result)

	p.phase(PhaseComplete)
	return result, nil
}

// templateBlock fetches and merges selected prompt templates: a single
// template is used verbatim, multiple are combined under per-template
// headers.
func (p *Pipeline) templateBlock(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	templates, err := p.repo.GetPromptTemplates(ctx, ids)
	if err != nil {
		return "", eris.Wrap(err, "research: load prompt templates")
	}
	return mergeTemplates(templates), nil
}

func mergeTemplates(templates []model.PromptTemplate) string {
	switch len(templates) {
	case 0:
		return ""
	case 1:
		return templates[0].Content
	}

	var b strings.Builder
	for i, t := range templates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n\n%s", t.Name, t.Content)
	}
	return b.String()
}

const researchSystemPrompt = "You are a senior marketing research analyst. Ground every claim in " +
	"current web sources, cite specifics over generalities, and structure the report in markdown " +
	"with clear section headings."

var depthTone = map[model.Depth]string{
	model.DepthQuick:         "Keep the report concise: the key findings and a short set of recommendations.",
	model.DepthStandard:      "Produce a balanced report covering findings, analysis, and recommendations.",
	model.DepthComprehensive: "Produce an exhaustive report: findings, analysis, competitive detail, risks, and prioritized recommendations.",
}

func buildResearchPrompt(topic string, depth model.Depth, cc *model.ClientContext, frameworkBlock, templateBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n", topic)

	if cc != nil {
		b.WriteString("\n")
		b.WriteString(formatClientBlock(cc))
	}
	if frameworkBlock != "" {
		b.WriteString("\n")
		b.WriteString(frameworkBlock)
	}
	if templateBlock != "" {
		b.WriteString("\nADDITIONAL INSTRUCTIONS:\n")
		b.WriteString(templateBlock)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(depthTone[depth])
	return b.String()
}

func formatClientBlock(cc *model.ClientContext) string {
	var b strings.Builder
	b.WriteString("CLIENT CONTEXT:\n")
	fmt.Fprintf(&b, "- Name: %s\n", cc.Name)
	if cc.Industry != "" {
		fmt.Fprintf(&b, "- Industry: %s\n", cc.Industry)
	}
	if cc.TargetAudience != "" {
		fmt.Fprintf(&b, "- Target audience: %s\n", cc.TargetAudience)
	}
	if cc.BusinessGoals != "" {
		fmt.Fprintf(&b, "- Business goals: %s\n", cc.BusinessGoals)
	}
	if cc.BrandVoice != "" {
		fmt.Fprintf(&b, "- Brand voice: %s\n", cc.BrandVoice)
	}
	if cc.ValueProposition != "" {
		fmt.Fprintf(&b, "- Value proposition: %s\n", cc.ValueProposition)
	}
	return b.String()
}

// persist saves the report as a content asset with full provenance in
// its metadata.
func (p *Pipeline) persist(ctx context.Context, params Params, result *model.ResearchResult) (string, error) {
	sources := make([]map[string]string, 0, len(result.WebSources))
	for _, s := range result.WebSources {
		sources = append(sources, map[string]string{"title": s.Title, "url": s.URL})
	}

	asset := &model.ContentAsset{
		UserID:    params.UserID,
		ClientID:  params.ClientID,
		AssetType: model.AssetTypeResearchReport,
		Title:     "Research: " + params.Topic,
		Body:      result.Report,
		Metadata: map[string]any{
			"topic":             params.Topic,
			"depth":             string(params.Depth),
			"model":             result.ModelUsed,
			"cost_usd":          result.CostUSD,
			"input_tokens":      result.InputTokens,
			"output_tokens":     result.OutputTokens,
			"frameworks_used":   result.FrameworksUsed,
			"web_sources":       sources,
			"search_queries":    result.SearchQueries,
			"grounding_support": result.GroundingSupport,
			"generated_at":      result.GeneratedAt.Format(time.RFC3339),
		},
	}

	assetID, err := p.repo.InsertContentAsset(ctx, asset)
	if err != nil {
		return "", eris.Wrap(err, "research: persist report")
	}
	return assetID, nil
}

// logExecution records the run best-effort, linked to the created
// asset so owner changes can cascade later. Failures never mask the
// research result.
func (p *Pipeline) logExecution(ctx context.Context, params Params, result *model.ResearchResult) {
	spec := depthSpecs[params.Depth]
	rec := &model.ExecutionRecord{
		UserID:         params.UserID,
		ClientID:       params.ClientID,
		ModelID:        spec.modelID,
		TaskType:       model.TaskResearchReport,
		InputSummary:   model.Summarize(params.Topic, 500),
		OutputSummary:  model.Summarize(result.Report, 500),
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		CostUSD:        result.CostUSD,
		Status:         model.ExecutionSuccess,
		ContentAssetID: result.SavedAssetID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.repo.InsertExecution(ctx, rec); err != nil {
		zap.L().Warn("research: failed to log execution record",
			zap.String("asset_id", result.SavedAssetID),
			zap.Error(err),
		)
	}
}
