package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/soundprediction/skls/pkg/types"
	"github.com/soundprediction/skls/pkg/utils"
)

// MemoryBackend is an in-process Backend using cosine distance. It is meant
// for tests and single-process tooling.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

func (b *MemoryBackend) GetOrCreateCollection(_ context.Context, name string) (Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if col, ok := b.collections[name]; ok {
		return col, nil
	}
	col := &memoryCollection{name: name, records: make(map[string]Record)}
	b.collections[name] = col
	return col, nil
}

func (b *MemoryBackend) DeleteCollection(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collections[name]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	delete(b.collections, name)
	return nil
}

func (b *MemoryBackend) ListCollections(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.collections)), nil
}

func (b *MemoryBackend) Close() error { return nil }

type memoryCollection struct {
	mu      sync.RWMutex
	name    string
	order   []string
	records map[string]Record
}

func (c *memoryCollection) Name() string { return c.name }

// Add ignores ids that are already present, as Chroma does.
func (c *memoryCollection) Add(_ context.Context, records []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			return types.ErrEmptyID
		}
		if _, ok := c.records[r.ID]; ok {
			continue
		}
		r.Vector = slices.Clone(r.Vector)
		r.Metadata = maps.Clone(r.Metadata)
		c.records[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	return nil
}

func (c *memoryCollection) Query(_ context.Context, vector []float32, n int) ([]types.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	scored := make([]utils.ScoredItem[Record], 0, len(c.records))
	for _, id := range c.order {
		r := c.records[id]
		if len(r.Vector) != len(vector) {
			continue
		}
		scored = append(scored, utils.ScoredItem[Record]{Item: r, Score: -utils.CosineDistance(vector, r.Vector)})
	}

	top := utils.TopKByScore(scored, n)
	results := make([]types.SearchResult, 0, len(top))
	for _, s := range top {
		results = append(results, types.SearchResult{
			ID:       s.Item.ID,
			Text:     s.Item.Text,
			Metadata: maps.Clone(s.Item.Metadata),
			Distance: -s.Score,
		})
	}
	return results, nil
}

func (c *memoryCollection) IDsWhere(_ context.Context, key, value string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for _, id := range c.order {
		if v, ok := c.records[id].Metadata[key]; ok && fmt.Sprint(v) == value {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *memoryCollection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.records, id)
	}
	c.order = slices.DeleteFunc(c.order, func(id string) bool {
		_, ok := c.records[id]
		return !ok
	})
	return nil
}

func (c *memoryCollection) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}
