package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores every collection in a single documents table keyed by
// (collection, id) with a jsonb payload.
type Postgres struct{ db *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{db: db} }

var _ Store = (*Postgres)(nil)

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var data json.RawMessage
	err := s.db.QueryRow(ctx, `
		SELECT data || jsonb_build_object('id', id)
		FROM documents
		WHERE collection=$1 AND id=$2
	`, collection, id).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

func (s *Postgres) Query(ctx context.Context, collection string, filter map[string]any) ([]Document, error) {
	sql := `
		SELECT id, data || jsonb_build_object('id', id)
		FROM documents
		WHERE collection=$1`
	args := []any{collection}

	if len(filter) > 0 {
		fj, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		args = append(args, string(fj))
		sql += ` AND data @> $2::jsonb`
	}
	sql += ` ORDER BY data->>'createdAt', id`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) Add(ctx context.Context, collection string, doc any) (Document, error) {
	m, err := normalize(doc)
	if err != nil {
		return Document{}, err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return Document{}, err
	}
	id := uuid.NewString()
	if _, err := s.db.Exec(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1,$2,$3)
	`, collection, id, string(body)); err != nil {
		return Document{}, err
	}
	data, err := withID(m, id)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, patch any) error {
	m, err := normalize(patch)
	if err != nil {
		return err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb
		WHERE collection=$1 AND id=$2
	`, collection, id, string(body))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Merge(ctx context.Context, collection, id string, doc any) error {
	m, err := normalize(doc)
	if err != nil {
		return err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1,$2,$3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = documents.data || EXCLUDED.data
	`, collection, id, string(body))
	return err
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM documents WHERE collection=$1 AND id=$2
	`, collection, id)
	return err
}

// ArrayAppend is a single UPDATE, so concurrent appends serialize on the
// row lock instead of clobbering each other.
func (s *Postgres) ArrayAppend(ctx context.Context, collection, id, field string, elem any) error {
	body, err := json.Marshal(elem)
	if err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx, `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3], COALESCE(data->$3, '[]'::jsonb) || $4::jsonb)
		WHERE collection=$1 AND id=$2
	`, collection, id, field, string(body))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) AddBatch(ctx context.Context, collection string, docs []any) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, doc := range docs {
		m, err := normalize(doc)
		if err != nil {
			return 0, err
		}
		body, err := json.Marshal(m)
		if err != nil {
			return 0, err
		}
		batch.Queue(`INSERT INTO documents (collection, id, data) VALUES ($1,$2,$3)`,
			collection, uuid.NewString(), string(body))
	}

	br := tx.SendBatch(ctx, batch)
	for range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("batch insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(docs), nil
}
