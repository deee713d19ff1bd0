package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"

	"github.com/atelier-labs/campaign-engine/internal/activity"
	"github.com/atelier-labs/campaign-engine/internal/catalog"
	"github.com/atelier-labs/campaign-engine/internal/db"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// PostgresStore implements Store using pgxpool with pgvector for the
// framework corpus.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the hottest store operations.
var preparedStatements = map[string]string{
	"insert_execution": `INSERT INTO ai_executions (id, user_id, client_id, model_id, task_type, complexity, input_summary, output_summary, input_tokens, output_tokens, cost_usd, duration_ms, status, used_fallback, content_asset_id, error_message, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
	"insert_asset":     `INSERT INTO content_assets (id, user_id, client_id, asset_type, title, body, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_client":       `SELECT id, user_id, name, industry, intake, brand, created_at FROM clients WHERE id = $1`,
	"match_chunks":     `SELECT id, framework_id, content, 1 - (embedding <=> $1) AS similarity FROM framework_chunks WHERE 1 - (embedding <=> $1) >= $2 ORDER BY embedding <=> $1 LIMIT $3`,
	"append_activity":  `INSERT INTO activity_log (id, activity_type, entity_type, entity_id, entity_name, user_id, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	industry   TEXT,
	intake     JSONB,
	brand      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS frameworks (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	category   TEXT,
	content    TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS framework_chunks (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	framework_id TEXT NOT NULL REFERENCES frameworks(id) ON DELETE CASCADE,
	content      TEXT NOT NULL,
	embedding    vector(1536) NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ai_models (
	id               TEXT PRIMARY KEY,
	provider         TEXT NOT NULL,
	label            TEXT NOT NULL,
	input_per_mtok   DOUBLE PRECISION NOT NULL,
	output_per_mtok  DOUBLE PRECISION NOT NULL,
	tier             TEXT NOT NULL,
	active           BOOLEAN NOT NULL DEFAULT true,
	sort_order       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ai_executions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	client_id        TEXT,
	model_id         TEXT NOT NULL,
	task_type        TEXT NOT NULL,
	complexity       TEXT,
	input_summary    TEXT,
	output_summary   TEXT,
	input_tokens     BIGINT NOT NULL DEFAULT 0,
	output_tokens    BIGINT NOT NULL DEFAULT 0,
	cost_usd         DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_ms      BIGINT NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	used_fallback    BOOLEAN NOT NULL DEFAULT false,
	content_asset_id TEXT,
	error_message    TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS content_assets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	client_id  TEXT,
	asset_type TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activity_log (
	id            TEXT PRIMARY KEY,
	activity_type TEXT NOT NULL,
	entity_type   TEXT NOT NULL,
	entity_id     TEXT NOT NULL,
	entity_name   TEXT,
	user_id       TEXT,
	metadata      JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ai_executions_user_id ON ai_executions(user_id);
CREATE INDEX IF NOT EXISTS idx_ai_executions_created_at ON ai_executions(created_at);
CREATE INDEX IF NOT EXISTS idx_content_assets_user_id ON content_assets(user_id);
CREATE INDEX IF NOT EXISTS idx_content_assets_asset_type ON content_assets(asset_type);
CREATE INDEX IF NOT EXISTS idx_framework_chunks_framework_id ON framework_chunks(framework_id);
CREATE INDEX IF NOT EXISTS idx_framework_chunks_embedding ON framework_chunks USING hnsw (embedding vector_cosine_ops);
CREATE INDEX IF NOT EXISTS idx_activity_log_entity ON activity_log(entity_type, entity_id);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// InsertExecution persists one immutable execution record.
func (s *PostgresStore) InsertExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_executions (id, user_id, client_id, model_id, task_type, complexity, input_summary, output_summary, input_tokens, output_tokens, cost_usd, duration_ms, status, used_fallback, content_asset_id, error_message, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rec.ID, rec.UserID, nullable(rec.ClientID), rec.ModelID, string(rec.TaskType), string(rec.Complexity),
		rec.InputSummary, rec.OutputSummary, rec.InputTokens, rec.OutputTokens, rec.CostUSD,
		rec.DurationMS, string(rec.Status), rec.UsedFallback, nullable(rec.ContentAssetID),
		nullable(rec.ErrorMessage), rec.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert execution")
	}
	return nil
}

// InsertContentAsset persists a content asset and returns its ID.
func (s *PostgresStore) InsertContentAsset(ctx context.Context, asset *model.ContentAsset) (string, error) {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(asset.Metadata)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal asset metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO content_assets (id, user_id, client_id, asset_type, title, body, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		asset.ID, asset.UserID, nullable(asset.ClientID), asset.AssetType, asset.Title, asset.Body, meta, asset.CreatedAt,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert content asset")
	}
	return asset.ID, nil
}

// GetClient loads a client record by ID.
func (s *PostgresStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var c model.Client
	var industry, intake, brand *string

	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, industry, intake, brand, created_at FROM clients WHERE id = $1`, id)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &industry, &intake, &brand, &c.CreatedAt); err != nil {
		return nil, eris.Wrapf(err, "postgres: get client %s", id)
	}

	if industry != nil {
		c.Industry = *industry
	}
	if intake != nil {
		c.Intake = []byte(*intake)
	}
	if brand != nil {
		c.Brand = []byte(*brand)
	}
	return &c, nil
}

// MatchFrameworkChunks runs cosine similarity search over the shared
// framework corpus.
func (s *PostgresStore) MatchFrameworkChunks(ctx context.Context, queryEmbedding []float32, threshold float64, limit int) ([]model.FrameworkChunk, error) {
	vec := pgvector.NewVector(queryEmbedding)
	rows, err := s.pool.Query(ctx,
		`SELECT id, framework_id, content, 1 - (embedding <=> $1) AS similarity FROM framework_chunks WHERE 1 - (embedding <=> $1) >= $2 ORDER BY embedding <=> $1 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: match framework chunks")
	}
	defer rows.Close()

	var chunks []model.FrameworkChunk
	for rows.Next() {
		var ch model.FrameworkChunk
		if err := rows.Scan(&ch.ID, &ch.FrameworkID, &ch.Content, &ch.Similarity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan framework chunk")
		}
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate framework chunks")
	}
	return chunks, nil
}

// GetFrameworks loads full framework documents by ID, preserving the
// order of ids.
func (s *PostgresStore) GetFrameworks(ctx context.Context, ids []string) ([]model.Framework, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, content FROM frameworks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get frameworks")
	}
	defer rows.Close()

	byID := make(map[string]model.Framework, len(ids))
	for rows.Next() {
		var f model.Framework
		var category *string
		if err := rows.Scan(&f.ID, &f.Name, &category, &f.Content); err != nil {
			return nil, eris.Wrap(err, "postgres: scan framework")
		}
		if category != nil {
			f.Category = *category
		}
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate frameworks")
	}

	out := make([]model.Framework, 0, len(byID))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// UpsertFramework inserts or updates a framework by name and returns
// its ID. Updated frameworks keep their chunk index until reindexed.
func (s *PostgresStore) UpsertFramework(ctx context.Context, fw *model.Framework) (string, error) {
	id := fw.ID
	if id == "" {
		id = uuid.NewString()
	}
	var out string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO frameworks (id, name, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, content = EXCLUDED.content
		 RETURNING id`,
		id, fw.Name, nullable(fw.Category), fw.Content).Scan(&out)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert framework %s", fw.Name)
	}
	return out, nil
}

// ListFrameworks returns every active framework, ordered by name.
func (s *PostgresStore) ListFrameworks(ctx context.Context) ([]model.Framework, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, content FROM frameworks WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list frameworks")
	}
	defer rows.Close()

	var out []model.Framework
	for rows.Next() {
		var f model.Framework
		var category *string
		if err := rows.Scan(&f.ID, &f.Name, &category, &f.Content); err != nil {
			return nil, eris.Wrap(err, "postgres: scan framework")
		}
		if category != nil {
			f.Category = *category
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate frameworks")
	}
	return out, nil
}

// ReplaceFrameworkChunks swaps a framework's indexed chunks for the
// given set, bulk-loading via COPY.
func (s *PostgresStore) ReplaceFrameworkChunks(ctx context.Context, frameworkID string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return eris.Errorf("postgres: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM framework_chunks WHERE framework_id = $1`, frameworkID); err != nil {
		return eris.Wrapf(err, "postgres: delete chunks for %s", frameworkID)
	}

	rows := make([][]any, len(chunks))
	for i, content := range chunks {
		rows[i] = []any{uuid.NewString(), frameworkID, content, pgvector.NewVector(embeddings[i])}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "framework_chunks",
		[]string{"id", "framework_id", "content", "embedding"}, rows); err != nil {
		return eris.Wrapf(err, "postgres: load chunks for %s", frameworkID)
	}
	return nil
}

// GetPromptTemplates loads prompt templates by ID, preserving order.
func (s *PostgresStore) GetPromptTemplates(ctx context.Context, ids []string) ([]model.PromptTemplate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, content FROM prompt_templates WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get prompt templates")
	}
	defer rows.Close()

	byID := make(map[string]model.PromptTemplate, len(ids))
	for rows.Next() {
		var t model.PromptTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Content); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prompt template")
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate prompt templates")
	}

	out := make([]model.PromptTemplate, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListModels implements catalog.Source over the ai_models table.
func (s *PostgresStore) ListModels(ctx context.Context) ([]catalog.ModelDescriptor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider, label, input_per_mtok, output_per_mtok, tier, active FROM ai_models ORDER BY sort_order, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list models")
	}
	defer rows.Close()

	var models []catalog.ModelDescriptor
	for rows.Next() {
		var m catalog.ModelDescriptor
		var tier string
		if err := rows.Scan(&m.ID, &m.Provider, &m.Label, &m.InputPerMTok, &m.OutputPerMTok, &tier, &m.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model")
		}
		m.Tier = catalog.Tier(tier)
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate models")
	}
	return models, nil
}

// Append implements activity.Logger.
func (s *PostgresStore) Append(ctx context.Context, ev activity.Event) error {
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal activity metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO activity_log (id, activity_type, entity_type, entity_id, entity_name, user_id, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), ev.ActivityType, ev.EntityType, ev.EntityID, nullable(ev.EntityName), nullable(ev.UserID), meta, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: append activity")
	}
	return nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
