package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// PassageRepository keeps the passage collection and its embeddings in one
// table. Similarity search uses the pgvector cosine distance operator.
type PassageRepository struct {
	db *sql.DB
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

func (r *PassageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS passages (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	embedding vector,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source, position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PassageRepository) SavePassages(ctx context.Context, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range passages {
		_, err := tx.ExecContext(ctx, `
INSERT INTO passages (id, text, source, position)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, source = EXCLUDED.source, position = EXCLUDED.position
`, p.ID, p.Text, p.Source, p.Position)
		if err != nil {
			return fmt.Errorf("insert passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

func (r *PassageRepository) IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch")
	}
	if len(passages) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, p := range passages {
		_, err := tx.ExecContext(ctx, `
INSERT INTO passages (id, text, source, position, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding
`, p.ID, p.Text, p.Source, p.Position, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("index passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

// SearchVectors returns ids by cosine similarity, converted from pgvector's
// distance as 1 - distance.
func (r *PassageRepository) SearchVectors(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, 1 - (embedding <=> $1) AS score
FROM passages
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1, id
LIMIT $2
`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScoredID, 0, k)
	for rows.Next() {
		var hit domain.ScoredID
		if err := rows.Scan(&hit.ID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return out, nil
}

func (r *PassageRepository) Passages(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text FROM passages WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out[id] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}

func (r *PassageRepository) ListPassages(ctx context.Context) ([]domain.Passage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, text, source, position
FROM passages
ORDER BY source, position, id
`)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	defer rows.Close()

	var out []domain.Passage
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ID, &p.Text, &p.Source, &p.Position); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}

// Passage loads one passage by id.
func (r *PassageRepository) Passage(ctx context.Context, id string) (*domain.Passage, error) {
	var p domain.Passage
	err := r.db.QueryRowContext(ctx, `SELECT id, text, source, position FROM passages WHERE id = $1`, id).
		Scan(&p.ID, &p.Text, &p.Source, &p.Position)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.WrapError(domain.ErrPassageNotFound, "get passage", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan passage: %w", err)
	}
	return &p, nil
}
