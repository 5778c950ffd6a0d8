// Package store reads and writes document metadata in the PostgreSQL
// documents table. Document bodies are not stored; they travel to the
// search service on the ingest topic.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/postgres"
)

const documentColumns = `id, name, content_hash, content_size, COALESCE(idempotency_key, ''),
	status, COALESCE(error, ''), created_at, indexed_at`

type Store struct {
	db *postgres.Client
}

func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// Create inserts doc as PENDING and returns its id. An idempotency key that
// is already taken yields ErrIdempotencyConflict.
func (s *Store) Create(ctx context.Context, doc *ingestion.Document) (string, error) {
	var id string
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (name, content_hash, content_size, idempotency_key, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			doc.Name, doc.ContentHash, doc.ContentSize, nullableString(doc.IdempotencyKey), ingestion.StatusPending,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict, "idempotency key already in use")
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("inserting document %q: %w", doc.Name, err)
	}
	return id, nil
}

// FindByIdempotencyKey returns the document created with key, or nil.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.Document, error) {
	doc, err := scanDocument(s.db.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE idempotency_key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return doc, nil
}

// Get returns the document with id, or ErrDocumentNotFound.
func (s *Store) Get(ctx context.Context, id string) (*ingestion.Document, error) {
	doc, err := scanDocument(s.db.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document id %s: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}
	return doc, nil
}

// UpdateStatus records the outcome of indexing. reason is stored for
// FAILED documents and cleared otherwise.
func (s *Store) UpdateStatus(ctx context.Context, id, status, reason string) error {
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, error = $2, indexed_at = NOW() WHERE id = $3`,
		status, nullableString(reason), id,
	)
	if err != nil {
		return fmt.Errorf("updating document %s to %s: %w", id, status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document id %s: %w", id, apperrors.ErrDocumentNotFound)
	}
	return nil
}

func scanDocument(row *sql.Row) (*ingestion.Document, error) {
	var (
		doc       ingestion.Document
		indexedAt sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.Name, &doc.ContentHash, &doc.ContentSize, &doc.IdempotencyKey,
		&doc.Status, &doc.Error, &doc.CreatedAt, &indexedAt)
	if err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}
	return &doc, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
