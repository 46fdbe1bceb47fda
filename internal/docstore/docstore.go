// Package docstore provides a collection-oriented document API backed by
// Postgres jsonb. Documents are schema-less; callers decode into their own
// types. The "id" key is reserved: it is stripped on writes and merged back
// into the payload on reads.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Document is a stored record. Data always carries the "id" key on reads,
// so it can be returned to HTTP clients as-is.
type Document struct {
	ID   string
	Data json.RawMessage
}

func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Query returns documents whose fields equal every entry in filter.
	// A nil or empty filter returns the whole collection.
	Query(ctx context.Context, collection string, filter map[string]any) ([]Document, error)

	// Add inserts doc under a generated id and returns the stored document.
	Add(ctx context.Context, collection string, doc any) (Document, error)

	// Update merges patch into an existing document. Fields absent from
	// patch are untouched. Returns ErrNotFound for a missing document.
	Update(ctx context.Context, collection, id string, patch any) error

	// Merge upserts: like Update but creates the document when missing.
	Merge(ctx context.Context, collection, id string, doc any) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// ArrayAppend atomically appends elem to the named array field.
	// Concurrent appends never overwrite each other.
	ArrayAppend(ctx context.Context, collection, id, field string, elem any) error

	// AddBatch inserts all docs under generated ids in a single atomic
	// batch and returns the number inserted.
	AddBatch(ctx context.Context, collection string, docs []any) (int, error)
}

// normalize marshals doc into a plain map with the reserved "id" key removed.
func normalize(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "id")
	return m, nil
}

// withID re-serializes m with the document id merged in.
func withID(m map[string]any, id string) (json.RawMessage, error) {
	m["id"] = id
	return json.Marshal(m)
}
