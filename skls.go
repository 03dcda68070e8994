package skls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/skls/pkg/alert"
	"github.com/soundprediction/skls/pkg/checkpoint"
	"github.com/soundprediction/skls/pkg/config"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/generator"
	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/nlp"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/soundprediction/skls/pkg/vectorstore"
)

// VectorStore is the subset of vectorstore.ChromaClient used by Client.
type VectorStore interface {
	StoreChunk(ctx context.Context, text string, metadata types.Metadata, id string) (string, error)
	StoreDocument(ctx context.Context, docID string, metadata types.Metadata) error
	ChunkExists(ctx context.Context, text string, threshold float64) (bool, error)
	SearchChunks(ctx context.Context, query string, topK int) ([]types.SearchResult, error)
	DeleteDocument(ctx context.Context, docID string) (int, error)
	ListCollections(ctx context.Context) ([]string, error)
	Close() error
}

// GraphWriter persists knowledge graphs. It is implemented by *graph.Manager.
type GraphWriter interface {
	WriteKnowledgeGraph(ctx context.Context, article graph.Article, kg graph.KnowledgeGraph) error
	Close(ctx context.Context) error
}

// ErrNoGenerator is returned when graph extraction is requested from a
// client built without a generator.
var ErrNoGenerator = errors.New("no generator configured")

// Client is the entry point for article ingestion and retrieval.
type Client struct {
	store       VectorStore
	embedder    embedder.Client
	generator   *generator.Generator
	graph       GraphWriter
	checkpoints *checkpoint.Manager
	maxWorkers  int
	language    string
	retries     int
	temperature float32
	maxTokens   int
	closers     []func() error
	log         *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEmbedder exposes emb through Client.Embedder.
func WithEmbedder(emb embedder.Client) Option {
	return func(c *Client) { c.embedder = emb }
}

// WithGenerator enables knowledge graph extraction.
func WithGenerator(g *generator.Generator) Option {
	return func(c *Client) { c.generator = g }
}

// WithGraphWriter sets where extracted graphs are written. Without one,
// graphs are extracted and returned but not persisted.
func WithGraphWriter(w GraphWriter) Option {
	return func(c *Client) { c.graph = w }
}

// WithCheckpoints records ingestion progress in m so failed articles resume
// where they stopped.
func WithCheckpoints(m *checkpoint.Manager) Option {
	return func(c *Client) { c.checkpoints = m }
}

// WithMaxWorkers bounds concurrent duplicate checks during ingestion.
func WithMaxWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithLanguage sets the language requested for generated string values.
func WithLanguage(language string) Option {
	return func(c *Client) { c.language = language }
}

// WithRetries sets the generation attempt budget.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithSampling sets the temperature and output token budget of graph
// extraction. Zero values keep the generator defaults.
func WithSampling(temperature float32, maxTokens int) Option {
	return func(c *Client) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

// NewClient creates a Client over an existing vector store.
func NewClient(store VectorStore, opts ...Option) *Client {
	c := &Client{
		store:      store,
		maxWorkers: 5,
		log:        logger.Get("skls"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig wires the embedding server, Chroma, the configured
// generation backend and Neo4j. An empty Neo4j URI disables graph writes.
// Options in extra are applied last.
func NewClientFromConfig(ctx context.Context, cfg *config.Config, alerter alert.Alerter, extra ...Option) (*Client, error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var emb embedder.Client = embedder.NewLlamaCppClient(embedder.Config{
		BaseURL:        cfg.Embedding.BaseURL,
		BatchSize:      cfg.Embedding.BatchSize,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	if cfg.Embedding.CachePath != "" {
		db, err := embedder.OpenCache(cfg.Embedding.CachePath)
		if err != nil {
			return nil, err
		}
		cached := embedder.NewCachedClient(emb, db, cfg.Embedding.BaseURL)
		closers = append(closers, cached.Close)
		emb = cached
	}

	store, err := vectorstore.NewChromaClient(ctx, emb,
		vectorstore.ChromaBackendConfig{
			BaseURL:  cfg.Chroma.BaseURL,
			Tenant:   cfg.Chroma.Tenant,
			Database: cfg.Chroma.Database,
		},
		vectorstore.Config{
			Collection:          cfg.Chroma.Collection,
			DocumentsCollection: cfg.Chroma.DocumentsCollection,
		})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to connect to chroma: %w", err)
	}

	llm, err := nlp.NewClientFromConfig(ctx, cfg, alerter)
	if err != nil {
		_ = store.Close()
		cleanup()
		return nil, fmt.Errorf("failed to create generation backend: %w", err)
	}
	closers = append(closers, llm.Close)

	opts := []Option{
		WithEmbedder(emb),
		WithGenerator(generator.New(llm)),
		WithMaxWorkers(cfg.Workers.MaxWorkers),
		WithLanguage(cfg.Generator.Language),
		WithRetries(cfg.Generator.Retries),
		WithSampling(cfg.Generator.Temperature, cfg.Generator.MaxTokens),
	}

	if cfg.Neo4j.URI != "" {
		mgr, err := graph.NewManager(ctx, cfg.Neo4j.URI,
			graph.Auth{Username: cfg.Neo4j.Username, Password: cfg.Neo4j.Password},
			graph.WithDatabase(cfg.Neo4j.Database))
		if err != nil {
			_ = store.Close()
			cleanup()
			return nil, err
		}
		opts = append(opts, WithGraphWriter(mgr))
	}

	c := NewClient(store, append(opts, extra...)...)
	c.closers = closers
	return c, nil
}

// Store returns the underlying vector store.
func (c *Client) Store() VectorStore {
	return c.store
}

// Embedder returns the embedding client, or nil when none was configured.
func (c *Client) Embedder() embedder.Client {
	return c.embedder
}

// Search returns the topK stored chunks most similar to query.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	return c.store.SearchChunks(ctx, query, topK)
}

// DeleteArticle removes the article's document entry and chunks. The graph
// is left untouched.
func (c *Client) DeleteArticle(ctx context.Context, articleID string) (int, error) {
	return c.store.DeleteDocument(ctx, articleID)
}

// ExtractGraph asks the generator for the knowledge graph of article.
func (c *Client) ExtractGraph(ctx context.Context, article graph.Article) (*graph.KnowledgeGraph, error) {
	if c.generator == nil {
		return nil, ErrNoGenerator
	}
	opts := []generator.GenerateOption{generator.WithPrompt(graphPrompt(article))}
	if c.language != "" {
		opts = append(opts, generator.WithLanguage(c.language))
	}
	if c.retries > 0 {
		opts = append(opts, generator.WithRetries(c.retries))
	}
	if c.temperature > 0 {
		opts = append(opts, generator.WithTemperature(c.temperature))
	}
	if c.maxTokens > 0 {
		opts = append(opts, generator.WithMaxTokens(c.maxTokens))
	}
	return generator.GenerateOneShot[graph.KnowledgeGraph](ctx, c.generator, opts...)
}

// Close releases every backend the client owns.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.graph != nil {
		errs = append(errs, c.graph.Close(ctx))
	}
	errs = append(errs, c.store.Close())
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}
