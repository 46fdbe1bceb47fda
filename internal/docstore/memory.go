package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same merge and append semantics
// as the Postgres implementation. Used by tests and local runs without a
// database.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any // collection -> id -> document
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]map[string]any{}}
}

var _ Store = (*Memory)(nil)

// coll creates the collection on demand; callers must hold the write lock.
func (s *Memory) coll(name string) map[string]map[string]any {
	c, ok := s.data[name]
	if !ok {
		c = map[string]map[string]any{}
		s.data[name] = c
	}
	return c
}

func (s *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return snapshot(id, doc)
}

func (s *Memory) Query(ctx context.Context, collection string, filter map[string]any) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for id, doc := range s.data[collection] {
		if !matches(doc, filter) {
			continue
		}
		d, err := snapshot(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, _ := fieldString(out[i], "createdAt")
		cj, _ := fieldString(out[j], "createdAt")
		if ci != cj {
			return ci < cj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) Add(ctx context.Context, collection string, doc any) (Document, error) {
	m, err := normalize(doc)
	if err != nil {
		return Document{}, err
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.coll(collection)[id] = m
	s.mu.Unlock()

	return snapshot(id, m)
}

func (s *Memory) Update(ctx context.Context, collection, id string, patch any) error {
	m, err := normalize(patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.coll(collection)[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range m {
		doc[k] = v
	}
	return nil
}

func (s *Memory) Merge(ctx context.Context, collection, id string, doc any) error {
	m, err := normalize(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.coll(collection)[id]
	if !ok {
		s.coll(collection)[id] = m
		return nil
	}
	for k, v := range m {
		existing[k] = v
	}
	return nil
}

func (s *Memory) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.coll(collection), id)
	return nil
}

func (s *Memory) ArrayAppend(ctx context.Context, collection, id, field string, elem any) error {
	// Array elements keep their own "id" key; only top-level documents
	// reserve it.
	raw, err := json.Marshal(elem)
	if err != nil {
		return err
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.coll(collection)[id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := doc[field].([]any)
	doc[field] = append(arr, m)
	return nil
}

func (s *Memory) AddBatch(ctx context.Context, collection string, docs []any) (int, error) {
	normalized := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		m, err := normalize(doc)
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range normalized {
		s.coll(collection)[uuid.NewString()] = m
	}
	return len(normalized), nil
}

// snapshot serializes the live map so callers never share mutable state.
func snapshot(id string, doc map[string]any) (Document, error) {
	cp := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		cp[k] = v
	}
	data, err := withID(cp, id)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

// matches compares via JSON re-encoding so int/float and typed values
// behave the way jsonb containment does.
func matches(doc map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		gb, err1 := json.Marshal(got)
		wb, err2 := json.Marshal(want)
		if err1 != nil || err2 != nil || string(gb) != string(wb) {
			return false
		}
	}
	return true
}

func fieldString(d Document, key string) (string, bool) {
	var m map[string]any
	if err := json.Unmarshal(d.Data, &m); err != nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}
