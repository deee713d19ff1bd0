package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/campaign-engine/internal/activity"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_InsertExecution(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ai_executions`).
		WithArgs(
			pgxmock.AnyArg(), "u1", pgxmock.AnyArg(), "claude-sonnet-4-20250514",
			"content_generation", "medium", "prompt", "output",
			int64(1000), int64(500), 0.0105, int64(1200), "success", false,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &model.ExecutionRecord{
		UserID:        "u1",
		ModelID:       "claude-sonnet-4-20250514",
		TaskType:      model.TaskContentGeneration,
		Complexity:    model.ComplexityMedium,
		InputSummary:  "prompt",
		OutputSummary: "output",
		InputTokens:   1000,
		OutputTokens:  500,
		CostUSD:       0.0105,
		DurationMS:    1200,
		Status:        model.ExecutionSuccess,
	}
	require.NoError(t, s.InsertExecution(context.Background(), rec))

	// Missing ID and timestamp are filled in.
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertContentAsset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO content_assets`).
		WithArgs(
			pgxmock.AnyArg(), "u1", pgxmock.AnyArg(), "research_report",
			"Research: roofing", "# Report", pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.InsertContentAsset(context.Background(), &model.ContentAsset{
		UserID:    "u1",
		AssetType: model.AssetTypeResearchReport,
		Title:     "Research: roofing",
		Body:      "# Report",
		Metadata:  map[string]any{"topic": "roofing"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	industry := "Roofing"
	intake := `{"target_audience":"homeowners"}`
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, user_id, name, industry, intake, brand, created_at FROM clients WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "industry", "intake", "brand", "created_at"}).
			AddRow("c1", "u1", "Acme Roofing", &industry, &intake, (*string)(nil), now))

	client, err := s.GetClient(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "Acme Roofing", client.Name)
	assert.Equal(t, "Roofing", client.Industry)
	assert.JSONEq(t, intake, string(client.Intake))
	assert.Empty(t, client.Brand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, name, industry, intake, brand, created_at FROM clients`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetClient(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get client nope")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MatchFrameworkChunks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	vec := []float32{0.1, 0.2}
	mock.ExpectQuery(`SELECT id, framework_id, content, 1 - \(embedding <=> \$1\) AS similarity FROM framework_chunks`).
		WithArgs(pgvector.NewVector(vec), 0.7, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "framework_id", "content", "similarity"}).
			AddRow("c1", "f1", "chunk one", 0.93).
			AddRow("c2", "f2", "chunk two", 0.81))

	chunks, err := s.MatchFrameworkChunks(context.Background(), vec, 0.7, 5)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "f1", chunks[0].FrameworkID)
	assert.InDelta(t, 0.93, chunks[0].Similarity, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFrameworks_PreservesOrder(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cat := "Funnel"
	mock.ExpectQuery(`SELECT id, name, category, content FROM frameworks WHERE id = ANY`).
		WithArgs([]string{"f2", "f1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "category", "content"}).
			AddRow("f1", "AIDA", &cat, "attention interest desire action").
			AddRow("f2", "StoryBrand", (*string)(nil), "guide the hero"))

	got, err := s.GetFrameworks(context.Background(), []string{"f2", "f1"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "StoryBrand", got[0].Name)
	assert.Equal(t, "AIDA", got[1].Name)
	assert.Equal(t, "Funnel", got[1].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFrameworks_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	got, err := s.GetFrameworks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_UpsertFramework(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ON CONFLICT \(name\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "AIDA", pgxmock.AnyArg(), "content").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("f1"))

	id, err := s.UpsertFramework(context.Background(), &model.Framework{Name: "AIDA", Content: "content"})
	require.NoError(t, err)
	assert.Equal(t, "f1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceFrameworkChunks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM framework_chunks WHERE framework_id = \$1`).
		WithArgs("f1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"framework_chunks"}, []string{"id", "framework_id", "content", "embedding"}).
		WillReturnResult(2)

	err := s.ReplaceFrameworkChunks(context.Background(), "f1",
		[]string{"chunk a", "chunk b"},
		[][]float32{{0.1}, {0.2}},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceFrameworkChunks_Mismatch(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.ReplaceFrameworkChunks(context.Background(), "f1", []string{"a", "b"}, [][]float32{{0.1}})
	assert.ErrorContains(t, err, "2 chunks but 1 embeddings")
}

func TestPostgresStore_ListModels(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, provider, label, input_per_mtok, output_per_mtok, tier, active FROM ai_models`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider", "label", "input_per_mtok", "output_per_mtok", "tier", "active"}).
			AddRow("claude-sonnet-4-20250514", "anthropic", "Claude Sonnet 4", 3.00, 15.00, "balanced", true).
			AddRow("gemini-2.5-pro", "google", "Gemini 2.5 Pro", 1.25, 10.00, "best", false))

	models, err := s.ListModels(context.Background())
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Equal(t, "anthropic", models[0].Provider)
	assert.True(t, models[0].Active)
	assert.False(t, models[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Append(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO activity_log`).
		WithArgs(
			pgxmock.AnyArg(), "ai_generation", "ai_execution", "ex-1",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Append(context.Background(), activity.Event{
		ActivityType: "ai_generation",
		EntityType:   "ai_execution",
		EntityID:     "ex-1",
		EntityName:   "Content Generation",
		UserID:       "u1",
		Metadata:     map[string]any{"cost_usd": 0.0105},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
