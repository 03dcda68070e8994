package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/skls/pkg/logger"
)

// CachedClient wraps a Client and stores computed vectors in badger.
// Only texts missing from the cache reach the wrapped client.
type CachedClient struct {
	next      Client
	db        *badger.DB
	namespace string
	log       *slog.Logger
}

// OpenCache opens (or creates) a badger cache at path. An empty path opens an
// in-memory cache.
func OpenCache(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return db, nil
}

// NewCachedClient creates a caching decorator. namespace separates vectors of
// different models sharing one cache.
func NewCachedClient(next Client, db *badger.DB, namespace string) *CachedClient {
	return &CachedClient{
		next:      next,
		db:        db,
		namespace: namespace,
		log:       logger.Get("embedder.cache"),
	}
}

// Close closes the underlying cache.
func (c *CachedClient) Close() error {
	return c.db.Close()
}

// EmbedText implements Client.
func (c *CachedClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.lookup(text); ok {
		return vec, nil
	}

	vec, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(map[string][]float32{text: vec})
	return vec, nil
}

// EmbedTexts implements Client. Cached texts are served from the cache and the
// rest are embedded in one call to the wrapped client.
func (c *CachedClient) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, t := range texts {
		if vec, ok := c.lookup(t); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	c.log.Debug("Embedding cache lookup", "hits", len(texts)-len(missing), "misses", len(missing))

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedTexts(ctx, missing, batchSize)
	fresh := make(map[string][]float32, len(vecs))
	for j, v := range vecs {
		if j >= len(missingIdx) {
			break
		}
		out[missingIdx[j]] = v
		if len(v) > 0 {
			fresh[missing[j]] = v
		}
	}
	c.store(fresh)
	return out, err
}

func (c *CachedClient) key(text string) []byte {
	sum := sha256.Sum256([]byte(c.namespace + "|" + text))
	return append([]byte("emb:"), sum[:]...)
}

func (c *CachedClient) lookup(text string) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Warn("Embedding cache read failed", "error", err)
		}
		return nil, false
	}
	return vec, len(vec) > 0
}

func (c *CachedClient) store(vecs map[string][]float32) {
	if len(vecs) == 0 {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		for text, v := range vecs {
			if err := txn.Set(c.key(text), encodeVector(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.log.Warn("Embedding cache write failed", "error", err)
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
