package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAddGet(t *testing.T) {
	s := NewMemory()
	doc, err := s.Add(context.Background(), "tickets", map[string]any{"title": "t1"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	got, err := s.Get(context.Background(), "tickets", doc.ID)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, got.Decode(&m))
	require.Equal(t, "t1", m["title"])
	require.Equal(t, doc.ID, m["id"])
}

func TestMemoryGetNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "tickets", "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateMergesPartially(t *testing.T) {
	s := NewMemory()
	doc, err := s.Add(context.Background(), "tickets", map[string]any{
		"title": "t1", "status": "open", "priority": "low",
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(context.Background(), "tickets", doc.ID, map[string]any{"status": "closed"}))

	got, err := s.Get(context.Background(), "tickets", doc.ID)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, got.Decode(&m))
	require.Equal(t, "closed", m["status"])
	require.Equal(t, "t1", m["title"])
	require.Equal(t, "low", m["priority"])
}

func TestMemoryUpdateNotFound(t *testing.T) {
	s := NewMemory()
	err := s.Update(context.Background(), "tickets", "nope", map[string]any{"a": 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMergeUpserts(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Merge(context.Background(), "generalSettings", "main", map[string]any{"companyName": "NTW"}))
	require.NoError(t, s.Merge(context.Background(), "generalSettings", "main", map[string]any{"language": "pt-BR"}))

	got, err := s.Get(context.Background(), "generalSettings", "main")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, got.Decode(&m))
	require.Equal(t, "NTW", m["companyName"])
	require.Equal(t, "pt-BR", m["language"])
}

func TestMemoryDeleteIdempotent(t *testing.T) {
	s := NewMemory()
	doc, err := s.Add(context.Background(), "tickets", map[string]any{"title": "t"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), "tickets", doc.ID))
	require.NoError(t, s.Delete(context.Background(), "tickets", doc.ID))
}

func TestMemoryQueryEqualityFilter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	_, err := s.Add(ctx, "users", map[string]any{"role": "technician", "email": "a@x"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "users", map[string]any{"role": "technician", "email": "b@x"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "users", map[string]any{"role": "admin", "email": "c@x"})
	require.NoError(t, err)

	techs, err := s.Query(ctx, "users", map[string]any{"role": "technician"})
	require.NoError(t, err)
	require.Len(t, techs, 2)

	all, err := s.Query(ctx, "users", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	none, err := s.Query(ctx, "users", map[string]any{"role": "user"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMemoryQueryBoolFilter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	_, err := s.Add(ctx, "categories", map[string]any{"name": "Hardware", "isActive": true})
	require.NoError(t, err)
	_, err = s.Add(ctx, "categories", map[string]any{"name": "Legado", "isActive": false})
	require.NoError(t, err)

	active, err := s.Query(ctx, "categories", map[string]any{"isActive": true})
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestMemoryArrayAppend(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	doc, err := s.Add(ctx, "tickets", map[string]any{"title": "t", "timeline": []any{}})
	require.NoError(t, err)

	require.NoError(t, s.ArrayAppend(ctx, "tickets", doc.ID, "timeline", map[string]any{"message": "primeira"}))
	require.NoError(t, s.ArrayAppend(ctx, "tickets", doc.ID, "timeline", map[string]any{"message": "segunda"}))

	got, err := s.Get(ctx, "tickets", doc.ID)
	require.NoError(t, err)
	var m struct {
		Timeline []map[string]any `json:"timeline"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &m))
	require.Len(t, m.Timeline, 2)
	require.Equal(t, "primeira", m.Timeline[0]["message"])
	require.Equal(t, "segunda", m.Timeline[1]["message"])
}

func TestMemoryArrayAppendNotFound(t *testing.T) {
	s := NewMemory()
	err := s.ArrayAppend(context.Background(), "tickets", "nope", "timeline", map[string]any{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryConcurrentAppendsLoseNothing(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	doc, err := s.Add(ctx, "tickets", map[string]any{"title": "t", "timeline": []any{}})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.ArrayAppend(ctx, "tickets", doc.ID, "timeline", map[string]any{"message": fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, "tickets", doc.ID)
	require.NoError(t, err)
	var m struct {
		Timeline []map[string]any `json:"timeline"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &m))
	require.Len(t, m.Timeline, n)
}

func TestMemoryAddBatch(t *testing.T) {
	s := NewMemory()
	docs := []any{
		map[string]any{"email": "a@x"},
		map[string]any{"email": "b@x"},
		map[string]any{"email": "c@x"},
	}
	n, err := s.AddBatch(context.Background(), "users", docs)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	all, err := s.Query(context.Background(), "users", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryStripsReservedIDKey(t *testing.T) {
	s := NewMemory()
	doc, err := s.Add(context.Background(), "tickets", map[string]any{"id": "forged", "title": "t"})
	require.NoError(t, err)
	require.NotEqual(t, "forged", doc.ID)

	var m map[string]any
	require.NoError(t, doc.Decode(&m))
	require.Equal(t, doc.ID, m["id"])
}

func TestMemorySnapshotIsolation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	doc, err := s.Add(ctx, "tickets", map[string]any{"title": "t"})
	require.NoError(t, err)

	first, err := s.Get(ctx, "tickets", doc.ID)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "tickets", doc.ID, map[string]any{"title": "changed"}))

	var m map[string]any
	require.NoError(t, first.Decode(&m))
	require.Equal(t, "t", m["title"], "earlier snapshot must not observe later writes")
}
