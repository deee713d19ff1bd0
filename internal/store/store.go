package store

import (
	"context"

	"github.com/atelier-labs/campaign-engine/internal/activity"
	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// Store defines the persistence interface for the orchestration and
// research core. Ownership is per user via user_id columns; research
// reports land in content_assets with full provenance metadata.
type Store interface {
	// Executions
	InsertExecution(ctx context.Context, rec *model.ExecutionRecord) error

	// Content assets
	InsertContentAsset(ctx context.Context, asset *model.ContentAsset) (string, error)

	// Clients
	GetClient(ctx context.Context, id string) (*model.Client, error)

	// Framework corpus. MatchFrameworkChunks performs vector similarity
	// search: chunks with similarity >= threshold, descending, at most
	// limit rows. The corpus is shared across tenants.
	MatchFrameworkChunks(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]model.FrameworkChunk, error)
	GetFrameworks(ctx context.Context, ids []string) ([]model.Framework, error)
	ListFrameworks(ctx context.Context) ([]model.Framework, error)
	UpsertFramework(ctx context.Context, fw *model.Framework) (string, error)
	ReplaceFrameworkChunks(ctx context.Context, frameworkID string, chunks []string, embeddings [][]float32) error

	// Prompt templates
	GetPromptTemplates(ctx context.Context, ids []string) ([]model.PromptTemplate, error)

	// Model catalog source (catalog.Source)
	ListModels(ctx context.Context) ([]catalog.ModelDescriptor, error)

	// Activity log (activity.Logger)
	Append(ctx context.Context, ev activity.Event) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
