package statute

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/ppiankov/docket/internal/model"
)

// PostgresRepository implements Repository on PostgreSQL with pgvector
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL-backed repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects to databaseURL and verifies the connection
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Search runs match_statutes for q
func (r *PostgresRepository) Search(ctx context.Context, q Query) ([]Match, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT article_number, category, content, similarity
		FROM match_statutes($1::vector, $2, $3, $4)
	`, vectorLiteral(q.Embedding), q.Threshold, q.Limit, q.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to search statutes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			m       Match
			article sql.NullString
		)
		if err := rows.Scan(&article, &m.Category, &m.Content, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan statute: %w", err)
		}
		if article.Valid {
			a := article.String
			m.ArticleNumber = &a
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statutes: %w", err)
	}

	return matches, nil
}

// Upsert inserts provisions, replacing existing rows with the same source key
func (r *PostgresRepository) Upsert(ctx context.Context, provisions []model.Provision) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statutes (id, source_key, article_number, category, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (source_key) DO UPDATE SET
			article_number = EXCLUDED.article_number,
			category = EXCLUDED.category,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range provisions {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("provision %s has no embedding", p.SourceKey())
		}
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		var article sql.NullString
		if p.ArticleNumber != nil {
			article = sql.NullString{String: *p.ArticleNumber, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, p.SourceKey(), article, p.Category, p.Title, p.Content, vectorLiteral(p.Embedding)); err != nil {
			return fmt.Errorf("failed to upsert provision %s: %w", p.SourceKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}
