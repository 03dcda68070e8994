package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/soundprediction/skls/pkg/logger"
)

const entityConstraintCypher = "CREATE CONSTRAINT IF NOT EXISTS FOR (n:Entity) REQUIRE n.name IS UNIQUE"

// Auth holds Neo4j basic auth credentials.
type Auth struct {
	Username string
	Password string
}

// runner executes Cypher. It is implemented by the Neo4j driver and by fakes
// in tests.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	RunInTransaction(ctx context.Context, queries []Query) error
	Close(ctx context.Context) error
}

// Manager writes knowledge graphs to Neo4j.
type Manager struct {
	runner runner
	log    *slog.Logger
}

// Option customises a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	database string
	log      *slog.Logger
}

// WithDatabase selects the Neo4j database; the default is "neo4j".
func WithDatabase(name string) Option {
	return func(o *managerOptions) {
		if name != "" {
			o.database = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewManager connects to Neo4j and ensures the uniqueness constraint on
// Entity.name exists.
func NewManager(ctx context.Context, uri string, auth Auth, opts ...Option) (*Manager, error) {
	o := managerOptions{database: "neo4j", log: logger.Get("graph")}
	for _, opt := range opts {
		opt(&o)
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(auth.Username, auth.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	m, err := newManager(ctx, &neo4jRunner{driver: driver, database: o.database}, o.log)
	if err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return m, nil
}

func newManager(ctx context.Context, r runner, log *slog.Logger) (*Manager, error) {
	m := &Manager{runner: r, log: log}
	if err := m.CreateIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateIndexes creates the Entity.name uniqueness constraint when missing.
func (m *Manager) CreateIndexes(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, entityConstraintCypher, nil); err != nil {
		return fmt.Errorf("failed to create entity constraint: %w", err)
	}
	return nil
}

// Close releases the driver.
func (m *Manager) Close(ctx context.Context) error {
	return m.runner.Close(ctx)
}

// ExecuteQuery runs one Cypher statement and returns its records as maps.
func (m *Manager) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	records, err := m.runner.Run(ctx, cypher, params)
	if err != nil {
		m.log.ErrorContext(ctx, "Error executing query", "query", cypher, "error", err)
		return nil, err
	}
	m.log.DebugContext(ctx, "Executed query", "query", preview(cypher, 50)+"...", "params", params)
	return records, nil
}

// ExecuteQueries runs queries one by one, each in its own transaction, and
// stops at the first failure.
func (m *Manager) ExecuteQueries(ctx context.Context, queries []Query) ([][]map[string]any, error) {
	results := make([][]map[string]any, 0, len(queries))
	for i, q := range queries {
		records, err := m.ExecuteQuery(ctx, q.Cypher, q.Params)
		if err != nil {
			m.log.ErrorContext(ctx, "Error executing query", "index", i+1, "query", q.Cypher, "error", err)
			return results, fmt.Errorf("query %d/%d failed: %w", i+1, len(queries), err)
		}
		results = append(results, records)
		m.log.DebugContext(ctx, fmt.Sprintf("Executed query %d/%d", i+1, len(queries)), "query", preview(q.Cypher, 50)+"...")
	}
	return results, nil
}

// WriteKnowledgeGraph persists kg for article in a single write transaction.
func (m *Manager) WriteKnowledgeGraph(ctx context.Context, article Article, kg KnowledgeGraph) error {
	queries := GenerateCypherQueries(article, kg)
	if err := m.runner.RunInTransaction(ctx, queries); err != nil {
		m.log.ErrorContext(ctx, "Failed to write knowledge graph", "article_id", article.ID(), "error", err)
		return fmt.Errorf("failed to write knowledge graph for %q: %w", article.Name, err)
	}
	m.log.InfoContext(ctx, "Knowledge graph stored",
		"article_id", article.ID(),
		"topic", kg.Topic,
		"entities", len(kg.Entities),
		"relationships", len(kg.Relationships))
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *neo4jRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(records))
		for i, rec := range records {
			out[i] = rec.AsMap()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}

func (r *neo4jRunner) RunInTransaction(ctx context.Context, queries []Query) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for i, q := range queries {
			res, err := tx.Run(ctx, q.Cypher, q.Params)
			if err != nil {
				return nil, fmt.Errorf("query %d/%d: %w", i+1, len(queries), err)
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, fmt.Errorf("query %d/%d: %w", i+1, len(queries), err)
			}
		}
		return nil, nil
	})
	return err
}

func (r *neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
