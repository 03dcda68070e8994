package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/soundprediction/skls/pkg/utils"
)

const (
	DefaultCollection          = "rag_collection"
	DefaultDocumentsCollection = "documents_metadata"
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.95

	// DocIDKey is the chunk metadata key linking a chunk to its document.
	DocIDKey = "doc_id"
)

// Config names the collections used by ChromaClient.
type Config struct {
	Collection          string
	DocumentsCollection string
}

// ChromaClient stores chunks and document metadata and runs similarity
// searches over them.
type ChromaClient struct {
	backend   Backend
	embedder  embedder.Client
	chunks    Collection
	documents Collection
	log       *slog.Logger
}

// Option customises a ChromaClient.
type Option func(*ChromaClient)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *ChromaClient) {
		if l != nil {
			c.log = l
		}
	}
}

// NewChromaClient connects to the Chroma server described by backendCfg and opens the
// configured collections.
func NewChromaClient(ctx context.Context, emb embedder.Client, backendCfg ChromaBackendConfig, cfg Config, opts ...Option) (*ChromaClient, error) {
	backend, err := NewChromaBackend(backendCfg, emb)
	if err != nil {
		return nil, err
	}
	c, err := New(ctx, backend, emb, cfg, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return c, nil
}

// New creates a ChromaClient on top of an arbitrary Backend, creating both
// collections when missing.
func New(ctx context.Context, backend Backend, emb embedder.Client, cfg Config, opts ...Option) (*ChromaClient, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.DocumentsCollection == "" {
		cfg.DocumentsCollection = DefaultDocumentsCollection
	}

	c := &ChromaClient{
		backend:  backend,
		embedder: emb,
		log:      logger.Get("vectorstore"),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.chunks, err = backend.GetOrCreateCollection(ctx, cfg.Collection); err != nil {
		return nil, err
	}
	if c.documents, err = backend.GetOrCreateCollection(ctx, cfg.DocumentsCollection); err != nil {
		return nil, err
	}

	c.log.InfoContext(ctx, "Chroma client initialized", "collection", cfg.Collection, "documents_collection", cfg.DocumentsCollection)
	return c, nil
}

// Close releases the backend.
func (c *ChromaClient) Close() error {
	return c.backend.Close()
}

// StoreChunksWithVectors stores pre-embedded chunks under fresh random ids
// and returns the ids in input order. metadatas may be nil; otherwise it must
// match chunks in length. Empty metadata maps are stored as no metadata.
func (c *ChromaClient) StoreChunksWithVectors(ctx context.Context, chunks []string, vectors [][]float32, metadatas []types.Metadata) ([]string, error) {
	if len(chunks) != len(vectors) || (metadatas != nil && len(metadatas) != len(chunks)) {
		return nil, ErrLengthMismatch
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chunks))
	records := make([]Record, len(chunks))
	for i := range chunks {
		ids[i] = utils.NewID()
		records[i] = Record{ID: ids[i], Text: chunks[i], Vector: vectors[i]}
		if metadatas != nil && len(metadatas[i]) > 0 {
			records[i].Metadata = metadatas[i]
		}
	}

	if err := c.chunks.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	c.log.InfoContext(ctx, "Stored chunks", "count", len(ids))
	return ids, nil
}

// StoreChunk embeds text and stores it. An empty id is replaced by a random one.
func (c *ChromaClient) StoreChunk(ctx context.Context, text string, metadata types.Metadata, id string) (string, error) {
	vec, err := c.embedder.EmbedText(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to embed chunk: %w", err)
	}
	return c.StoreChunkWithVector(ctx, text, vec, metadata, id)
}

// StoreChunkWithVector stores a single pre-embedded chunk.
func (c *ChromaClient) StoreChunkWithVector(ctx context.Context, text string, vector []float32, metadata types.Metadata, id string) (string, error) {
	if id == "" {
		id = utils.NewID()
	}
	rec := Record{ID: id, Text: text, Vector: vector}
	if len(metadata) > 0 {
		rec.Metadata = metadata
	}

	if err := c.chunks.Add(ctx, []Record{rec}); err != nil {
		return "", fmt.Errorf("failed to store chunk %s: %w", id, err)
	}
	c.log.DebugContext(ctx, "Stored chunk", "id", id, "length", len(text))
	return id, nil
}

// StoreDocument records a document entry in the metadata collection. The
// entry is embedded from its "title" metadata when present, else from docID.
func (c *ChromaClient) StoreDocument(ctx context.Context, docID string, metadata types.Metadata) error {
	if docID == "" {
		return types.ErrEmptyID
	}
	text := docID
	if title, ok := metadata["title"].(string); ok && title != "" {
		text = title
	}

	vec, err := c.embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed document %s: %w", docID, err)
	}
	rec := Record{ID: docID, Text: text, Vector: vec}
	if len(metadata) > 0 {
		rec.Metadata = metadata
	}
	if err := c.documents.Add(ctx, []Record{rec}); err != nil {
		return fmt.Errorf("failed to store document %s: %w", docID, err)
	}
	c.log.DebugContext(ctx, "Stored document", "doc_id", docID)
	return nil
}

// DeleteCollection drops the chunk collection.
func (c *ChromaClient) DeleteCollection(ctx context.Context) error {
	return c.backend.DeleteCollection(ctx, c.chunks.Name())
}

// Count returns the number of stored chunks.
func (c *ChromaClient) Count(ctx context.Context) (int, error) {
	return c.chunks.Count(ctx)
}

// DeleteChunks removes chunks by id.
func (c *ChromaClient) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.chunks.Delete(ctx, ids)
}

// ListCollections returns the names of all collections.
func (c *ChromaClient) ListCollections(ctx context.Context) ([]string, error) {
	return c.backend.ListCollections(ctx)
}

// DeleteDocument removes a document entry and every chunk whose doc_id
// metadata matches it. It returns the number of chunks removed.
func (c *ChromaClient) DeleteDocument(ctx context.Context, docID string) (int, error) {
	if err := c.documents.Delete(ctx, []string{docID}); err != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", docID, err)
	}

	ids, err := c.chunks.IDsWhere(ctx, DocIDKey, docID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up chunks of %s: %w", docID, err)
	}
	if err := c.DeleteChunks(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}

	c.log.InfoContext(ctx, "Deleted document", "doc_id", docID, "chunks", len(ids))
	return len(ids), nil
}

// SearchChunks returns the topK chunks closest to query. A topK <= 0 uses
// DefaultTopK. An empty query embedding yields no results.
func (c *ChromaClient) SearchChunks(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) == 0 {
		return []types.SearchResult{}, nil
	}

	c.log.DebugContext(ctx, "Searching chunks", "top_k", topK)
	results, err := c.chunks.Query(ctx, vec, topK)
	if err != nil {
		c.log.ErrorContext(ctx, "Chunk search failed", "error", err)
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	return results, nil
}

// ChunkExists reports whether a stored chunk has similarity (1 - distance)
// of at least threshold to text. A threshold <= 0 uses DefaultSimilarityThreshold.
func (c *ChromaClient) ChunkExists(ctx context.Context, text string, threshold float64) (bool, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	vec, err := c.embedder.EmbedText(ctx, text)
	if err != nil || len(vec) == 0 {
		c.log.WarnContext(ctx, "Could not generate embedding for text", "preview", preview(text, 50)+"...", "error", err)
		return false, err
	}

	results, err := c.chunks.Query(ctx, vec, 1)
	if err != nil {
		c.log.ErrorContext(ctx, "Duplicate check failed", "error", err)
		return false, fmt.Errorf("failed to query chunks: %w", err)
	}
	if len(results) == 0 {
		c.log.DebugContext(ctx, "No similar chunks found", "preview", preview(text, 50)+"...")
		return false, nil
	}

	similarity := results[0].Similarity()
	c.log.DebugContext(ctx, "Chunk similarity check",
		"distance", results[0].Distance,
		"similarity", similarity,
		"threshold", threshold)
	return similarity >= threshold, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
