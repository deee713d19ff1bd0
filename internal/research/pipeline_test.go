package research

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/model"
	"github.com/atelier-labs/campaign-engine/internal/retrieval"
	"github.com/atelier-labs/campaign-engine/pkg/gemini"
)

// fakeRepo implements Repository in memory.
type fakeRepo struct {
	client    *model.Client
	clientErr error
	templates []model.PromptTemplate
	tmplErr   error

	assets     []*model.ContentAsset
	assetErr   error
	executions []*model.ExecutionRecord
	execErr    error
}

func (f *fakeRepo) GetClient(ctx context.Context, id string) (*model.Client, error) {
	if f.clientErr != nil {
		return nil, f.clientErr
	}
	return f.client, nil
}

func (f *fakeRepo) GetPromptTemplates(ctx context.Context, ids []string) ([]model.PromptTemplate, error) {
	if f.tmplErr != nil {
		return nil, f.tmplErr
	}
	return f.templates, nil
}

func (f *fakeRepo) InsertContentAsset(ctx context.Context, asset *model.ContentAsset) (string, error) {
	if f.assetErr != nil {
		return "", f.assetErr
	}
	f.assets = append(f.assets, asset)
	return "asset-1", nil
}

func (f *fakeRepo) InsertExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	if f.execErr != nil {
		return f.execErr
	}
	f.executions = append(f.executions, rec)
	return nil
}

// emptyCorpus yields no framework matches; research must still work.
type emptyCorpus struct{}

func (emptyCorpus) MatchFrameworkChunks(ctx context.Context, vec []float32, threshold float64, limit int) ([]model.FrameworkChunk, error) {
	return nil, nil
}

func (emptyCorpus) GetFrameworks(ctx context.Context, ids []string) ([]model.Framework, error) {
	return nil, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{0.1}}, nil
}

func (stubEmbedder) EmbedForQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func groundedOK() *gemini.GroundedResponse {
	return &gemini.GroundedResponse{
		TextResponse: gemini.TextResponse{
			Content:      "# Report\n\nFindings.",
			InputTokens:  2000,
			OutputTokens: 1000,
		},
		Sources:          []gemini.Source{{Title: "Industry Report", URL: "https://example.com/report"}},
		SearchQueries:    []string{"roofing market size 2026"},
		GroundingSupport: 0.82,
	}
}

func newTestPipeline(gem gemini.Client, repo Repository, opts ...PipelineOption) *Pipeline {
	searcher := retrieval.NewSearcher(stubEmbedder{}, emptyCorpus{})
	return NewPipeline(gem, searcher, repo, catalog.Default(), opts...)
}

func validParams() Params {
	return Params{
		Topic:        "roofing lead generation",
		UserID:       "u1",
		Depth:        model.DepthQuick,
		UseWebSearch: true,
	}
}

func TestPerformRejectsUngroundedRequests(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeGemini{grounded: groundedOK()}, &fakeRepo{})

	params := validParams()
	params.UseWebSearch = false

	_, err := p.Perform(context.Background(), params)
	assert.ErrorContains(t, err, "web search is required")
}

func TestPerformValidation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeGemini{grounded: groundedOK()}, &fakeRepo{})

	t.Run("empty topic", func(t *testing.T) {
		params := validParams()
		params.Topic = "  "
		_, err := p.Perform(context.Background(), params)
		assert.ErrorContains(t, err, "topic is required")
	})

	t.Run("unknown depth", func(t *testing.T) {
		params := validParams()
		params.Depth = "extreme"
		_, err := p.Perform(context.Background(), params)
		assert.ErrorContains(t, err, "unknown depth")
	})
}

func TestPerformQuickEndToEnd(t *testing.T) {
	t.Parallel()

	gem := &fakeGemini{grounded: groundedOK()}
	repo := &fakeRepo{}
	p := newTestPipeline(gem, repo)

	result, err := p.Perform(context.Background(), validParams())
	require.NoError(t, err)

	assert.NotEmpty(t, result.Report)
	assert.Contains(t, result.ModelUsed, "(web-grounded)")
	assert.GreaterOrEqual(t, result.CostUSD, 0.0)
	assert.Empty(t, result.FrameworksUsed, "no corpus matches is fine")
	assert.Equal(t, "asset-1", result.SavedAssetID)
	assert.Equal(t, []string{"roofing market size 2026"}, result.SearchQueries)
	assert.InDelta(t, 0.82, result.GroundingSupport, 1e-9)
	require.Len(t, result.WebSources, 1)
	assert.Equal(t, "https://example.com/report", result.WebSources[0].URL)

	// Quick depth routes to the flash-lite model.
	require.Len(t, gem.groundedReqs, 1)
	assert.Equal(t, "gemini-2.5-flash-lite", gem.groundedReqs[0].Model)
	assert.Equal(t, int32(2048), gem.groundedReqs[0].MaxTokens)

	// Asset persisted with provenance metadata.
	require.Len(t, repo.assets, 1)
	asset := repo.assets[0]
	assert.Equal(t, model.AssetTypeResearchReport, asset.AssetType)
	assert.Equal(t, "Research: roofing lead generation", asset.Title)
	assert.Equal(t, "u1", asset.UserID)
	assert.Equal(t, "roofing lead generation", asset.Metadata["topic"])
	assert.Equal(t, "quick", asset.Metadata["depth"])

	// Execution logged and linked to the asset.
	require.Len(t, repo.executions, 1)
	assert.Equal(t, "asset-1", repo.executions[0].ContentAssetID)
	assert.Equal(t, model.TaskResearchReport, repo.executions[0].TaskType)
}

func TestPerformDepthModels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		depth     model.Depth
		wantModel string
		wantMax   int32
	}{
		{model.DepthQuick, "gemini-2.5-flash-lite", 2048},
		{model.DepthStandard, "gemini-2.5-flash", 4096},
		{model.DepthComprehensive, "gemini-2.5-pro", 8192},
	}

	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			t.Parallel()
			gem := &fakeGemini{grounded: groundedOK()}
			p := newTestPipeline(gem, &fakeRepo{})

			params := validParams()
			params.Depth = tt.depth

			_, err := p.Perform(context.Background(), params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, gem.groundedReqs[0].Model)
			assert.Equal(t, tt.wantMax, gem.groundedReqs[0].MaxTokens)
		})
	}
}

func TestPerformClientContextInPrompt(t *testing.T) {
	t.Parallel()

	gem := &fakeGemini{grounded: groundedOK()}
	repo := &fakeRepo{client: &model.Client{Name: "Acme Roofing", Industry: "Roofing"}}
	p := newTestPipeline(gem, repo)

	params := validParams()
	params.ClientID = "c1"

	_, err := p.Perform(context.Background(), params)
	require.NoError(t, err)

	prompt := gem.groundedReqs[0].Prompt
	assert.Contains(t, prompt, "CLIENT CONTEXT:")
	assert.Contains(t, prompt, "Acme Roofing")
}

func TestPerformClientLookupFailureIsSoft(t *testing.T) {
	t.Parallel()

	gem := &fakeGemini{grounded: groundedOK()}
	repo := &fakeRepo{clientErr: eris.New("db down")}
	p := newTestPipeline(gem, repo)

	params := validParams()
	params.ClientID = "c1"

	result, err := p.Perform(context.Background(), params)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Report)
	assert.NotContains(t, gem.groundedReqs[0].Prompt, "CLIENT CONTEXT:")
}

func TestPerformTemplatesInPrompt(t *testing.T) {
	t.Parallel()

	gem := &fakeGemini{grounded: groundedOK()}
	repo := &fakeRepo{templates: []model.PromptTemplate{
		{ID: "t1", Name: "SEO brief", Content: "Focus on organic channels."},
		{ID: "t2", Name: "Tone", Content: "Keep it punchy."},
	}}
	p := newTestPipeline(gem, repo)

	params := validParams()
	params.TemplateIDs = []string{"t1", "t2"}

	_, err := p.Perform(context.Background(), params)
	require.NoError(t, err)

	prompt := gem.groundedReqs[0].Prompt
	assert.Contains(t, prompt, "ADDITIONAL INSTRUCTIONS:")
	assert.Contains(t, prompt, "### SEO brief")
	assert.Contains(t, prompt, "### Tone")
}

func TestPerformGenerationFailureIsHard(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	p := newTestPipeline(&fakeGemini{groundedErr: eris.New("503")}, repo)

	_, err := p.Perform(context.Background(), validParams())
	assert.ErrorContains(t, err, "grounded generation failed")
	assert.Empty(t, repo.assets, "no asset persisted for a failed run")
}

func TestPerformEmptyReportIsHard(t *testing.T) {
	t.Parallel()

	gem := &fakeGemini{grounded: &gemini.GroundedResponse{
		TextResponse: gemini.TextResponse{Content: "   "},
	}}
	p := newTestPipeline(gem, &fakeRepo{})

	_, err := p.Perform(context.Background(), validParams())
	assert.ErrorContains(t, err, "empty report")
}

func TestPerformPersistFailureIsHard(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeGemini{grounded: groundedOK()}, &fakeRepo{assetErr: eris.New("db down")})

	_, err := p.Perform(context.Background(), validParams())
	assert.ErrorContains(t, err, "persist report")
}

func TestPerformExecutionLogFailureIsSoft(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{execErr: eris.New("db hiccup")}
	p := newTestPipeline(&fakeGemini{grounded: groundedOK()}, repo)

	result, err := p.Perform(context.Background(), validParams())
	require.NoError(t, err, "execution logging must not mask the report")
	assert.Equal(t, "asset-1", result.SavedAssetID)
}

func TestPerformReportsPhases(t *testing.T) {
	t.Parallel()

	var phases []Phase
	p := newTestPipeline(&fakeGemini{grounded: groundedOK()}, &fakeRepo{},
		WithProgress(func(ph Phase) { phases = append(phases, ph) }))

	_, err := p.Perform(context.Background(), validParams())
	require.NoError(t, err)

	assert.Equal(t, []Phase{
		PhaseInitializing,
		PhaseGatheringClientData,
		PhaseSearchingFrameworks,
		PhaseGeneratingQueries,
		PhaseGeneratingReport,
		PhaseComplete,
	}, phases)
}

func TestPerformErrorPhaseOnFailure(t *testing.T) {
	t.Parallel()

	var phases []Phase
	p := newTestPipeline(&fakeGemini{groundedErr: eris.New("503")}, &fakeRepo{},
		WithProgress(func(ph Phase) { phases = append(phases, ph) }))

	_, err := p.Perform(context.Background(), validParams())
	require.Error(t, err)
	assert.Equal(t, PhaseError, phases[len(phases)-1])
}
