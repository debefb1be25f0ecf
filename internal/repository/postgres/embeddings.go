package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"finbrief/internal/adapters/config"
	"finbrief/internal/retriever"
	"finbrief/pkg/errors"
)

// Compile-time check
var _ retriever.Archive = (*EmbeddingArchive)(nil)

// EmbeddingArchive persists embedding records to Postgres/pgvector for
// durability and audit. The in-memory index stays the query authority;
// SearchSimilar exists for offline inspection and backfill tooling.
type EmbeddingArchive struct {
	db *sqlx.DB
}

// ArchivedRecord is the row shape for the embeddings table
type ArchivedRecord struct {
	ID          string          `db:"id"`
	DocumentID  string          `db:"document_id"`
	Symbol      string          `db:"symbol"`
	Origin      string          `db:"origin"`
	Title       string          `db:"title"`
	ContentHash string          `db:"content_hash"`
	Embedding   pgvector.Vector `db:"embedding"`
	Model       string          `db:"model"`
	InsertedAt  time.Time       `db:"inserted_at"`
}

// NewEmbeddingArchive connects to Postgres and verifies the connection
func NewEmbeddingArchive(cfg config.PostgresConfig) (*EmbeddingArchive, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDependencyUnavailable, err.Error())
	}
	db.SetMaxOpenConns(cfg.MaxConns)

	return &EmbeddingArchive{db: db}, nil
}

// Store inserts one embedding record; content_hash conflicts are ignored so
// idempotent re-ingestion stays idempotent at the archive too
func (a *EmbeddingArchive) Store(ctx context.Context, rec *retriever.EmbeddingRecord) error {
	query := `
		INSERT INTO embeddings (
			id, document_id, symbol, origin, title, content_hash,
			embedding, model, inserted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (content_hash) DO NOTHING`

	_, err := a.db.ExecContext(ctx, query,
		rec.ID, rec.DocumentID, rec.Document.Symbol, rec.Document.Origin.String(),
		rec.Document.Title, rec.ContentHash,
		pgvector.NewVector(rec.Vector), rec.Model, rec.InsertedAt,
	)

	return errors.Wrap(err, "store embedding")
}

// SearchSimilar performs cosine nearest-neighbor search over archived records
func (a *EmbeddingArchive) SearchSimilar(ctx context.Context, embedding []float32, model string, limit int) ([]ArchivedRecord, error) {
	var records []ArchivedRecord

	query := `
		SELECT id, document_id, symbol, origin, title, content_hash,
		       embedding, model, inserted_at
		FROM embeddings
		WHERE model = $1
		ORDER BY embedding <=> $2
		LIMIT $3`

	err := a.db.SelectContext(ctx, &records, query, model, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, errors.Wrap(err, "search embeddings")
	}

	return records, nil
}

// DeleteOlderThan prunes archived records past the retention window
func (a *EmbeddingArchive) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM embeddings WHERE inserted_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "prune embeddings")
	}
	return result.RowsAffected()
}

// Health checks Postgres connectivity
func (a *EmbeddingArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the connection pool
func (a *EmbeddingArchive) Close() error {
	return a.db.Close()
}
