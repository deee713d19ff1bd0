package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/embedding"
	"github.com/atelier-labs/campaign-engine/internal/orchestrator"
	"github.com/atelier-labs/campaign-engine/internal/provider"
	"github.com/atelier-labs/campaign-engine/internal/research"
	"github.com/atelier-labs/campaign-engine/internal/retrieval"
	"github.com/atelier-labs/campaign-engine/internal/store"
	anthropicpkg "github.com/atelier-labs/campaign-engine/pkg/anthropic"
	geminipkg "github.com/atelier-labs/campaign-engine/pkg/gemini"
)

// appEnv holds the initialized store, catalog, adapters, and the
// orchestration and research services shared by the commands.
type appEnv struct {
	Store        store.Store
	Catalog      catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
	Embedder     embedding.Service
	Searcher     *retrieval.Searcher
	Gemini       geminipkg.Client // nil when GOOGLE_AI_API_KEY is unset
	Planner      *research.Planner
	Research     *research.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, model catalog, provider adapters, and the
// orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required (CAMPAIGN_STORE_DATABASE_URL)")
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}

	var cat catalog.Catalog
	switch cfg.Catalog.Source {
	case "db":
		cat = catalog.NewDB(st, time.Duration(cfg.Catalog.RefreshSeconds)*time.Second)
	case "static":
		cat = catalog.Default()
	default:
		_ = st.Close()
		return nil, eris.Errorf("unsupported catalog source: %s", cfg.Catalog.Source)
	}

	var adapters []provider.Adapter

	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		limiter := rate.NewLimiter(rate.Limit(cfg.Anthropic.RequestRPS), 1)
		adapters = append(adapters, anthropicpkg.NewAdapter(client, anthropicpkg.WithLimiter(limiter)))
	} else {
		zap.L().Warn("ANTHROPIC_API_KEY not set, anthropic models unavailable")
	}

	var gem geminipkg.Client
	if cfg.Google.Key != "" {
		gem, err = geminipkg.NewClient(ctx, cfg.Google.Key)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "init gemini client")
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.Google.RequestRPS), 1)
		adapters = append(adapters, geminipkg.NewAdapter(gem, geminipkg.WithLimiter(limiter)))
	} else {
		zap.L().Warn("GOOGLE_AI_API_KEY not set, google models and research unavailable")
	}

	registry := provider.NewRegistry(adapters...)

	// Persist first so the activity hook sees the assigned execution ID.
	orch := orchestrator.New(cat, registry, orchestrator.WithHooks(
		orchestrator.PersistExecutionHook(st),
		orchestrator.ActivityHook(st, cat),
	))

	embedOpts := []embedding.Option{embedding.WithModel(cfg.OpenAI.EmbeddingModel)}
	if cfg.OpenAI.BaseURL != "" {
		embedOpts = append(embedOpts, embedding.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	embedder := embedding.New(cfg.OpenAI.Key, embedOpts...)
	if cfg.OpenAI.Key == "" {
		zap.L().Warn("OPENAI_API_KEY not set, framework retrieval disabled")
	}

	searcher := retrieval.NewSearcher(embedder, st)

	env := &appEnv{
		Store:        st,
		Catalog:      cat,
		Orchestrator: orch,
		Embedder:     embedder,
		Searcher:     searcher,
		Gemini:       gem,
	}

	if gem != nil {
		env.Planner = research.NewPlanner(gem, st, st)
		env.Research = research.NewPipeline(gem, searcher, st, cat, research.WithProgress(func(ph research.Phase) {
			zap.L().Info("research phase", zap.String("phase", string(ph)))
		}))
	}

	return env, nil
}

// requireResearch returns the research services or an error when the
// Google client was not configured.
func (e *appEnv) requireResearch() error {
	if e.Gemini == nil {
		return eris.New("google API key is required for research (GOOGLE_AI_API_KEY)")
	}
	return nil
}
