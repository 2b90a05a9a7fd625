package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/formkv/internal/models"
)

// SQLStorage implements Storage on database/sql. Queries are written with "?"
// placeholders and rebound for drivers that use numbered placeholders.
type SQLStorage struct {
	db       *sql.DB
	numbered bool
}

func (s *SQLStorage) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveExtraction inserts an extraction. CreatedAt is set when zero.
func (s *SQLStorage) SaveExtraction(ctx context.Context, e *models.Extraction) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO extractions (id, bucket, document_key, provider, block_count, fields, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Bucket, e.Key, e.Provider, e.BlockCount, string(fieldsJSON), e.CreatedAt,
	)
	return err
}

// GetExtraction returns an extraction by id.
func (s *SQLStorage) GetExtraction(ctx context.Context, id string) (*models.Extraction, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, bucket, document_key, provider, block_count, fields, created_at
		 FROM extractions WHERE id = ?`), id)
	e, err := scanExtraction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExtractions returns extractions, newest first.
func (s *SQLStorage) ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, bucket, document_key, provider, block_count, fields, created_at
		 FROM extractions ORDER BY created_at DESC, id LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExtraction removes an extraction by id.
func (s *SQLStorage) DeleteExtraction(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM extractions WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountExtractions returns the total number of extractions.
func (s *SQLStorage) CountExtractions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(sc scanner) (*models.Extraction, error) {
	var e models.Extraction
	var fieldsJSON string
	if err := sc.Scan(&e.ID, &e.Bucket, &e.Key, &e.Provider, &e.BlockCount, &fieldsJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Fields = models.NewFields()
	if fieldsJSON != "" {
		if err := json.Unmarshal([]byte(fieldsJSON), e.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
	}
	return &e, nil
}
