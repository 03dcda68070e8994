package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/types"
)

// ChromaBackendConfig addresses a Chroma server.
type ChromaBackendConfig struct {
	BaseURL  string
	Tenant   string
	Database string
}

type chromaBackend struct {
	client chroma.Client
	ef     embeddings.EmbeddingFunction
}

// NewChromaBackend connects to a Chroma server over its v2 HTTP API.
// Collections are created in the cosine space and embed through emb, so
// Chroma never falls back to its bundled embedding model.
func NewChromaBackend(cfg ChromaBackendConfig, emb embedder.Client) (Backend, error) {
	opts := []chroma.ClientOption{chroma.WithBaseURL(cfg.BaseURL)}
	if cfg.Tenant != "" || cfg.Database != "" {
		tenant, database := cfg.Tenant, cfg.Database
		if tenant == "" {
			tenant = chroma.DefaultTenant
		}
		if database == "" {
			database = chroma.DefaultDatabase
		}
		opts = append(opts, chroma.WithDatabaseAndTenant(database, tenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &chromaBackend{client: client, ef: embeddingFunction{client: emb}}, nil
}

func (b *chromaBackend) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	col, err := b.client.GetOrCreateCollection(ctx, name,
		chroma.WithEmbeddingFunctionCreate(b.ef),
		chroma.WithCollectionMetadataCreate(
			chroma.NewMetadata(chroma.NewStringAttribute("hnsw:space", "cosine")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	return &chromaCollection{col: col}, nil
}

func (b *chromaBackend) DeleteCollection(ctx context.Context, name string) error {
	return b.client.DeleteCollection(ctx, name)
}

func (b *chromaBackend) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := b.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name())
	}
	return names, nil
}

func (b *chromaBackend) Close() error {
	return b.client.Close()
}

// includeDistances is absent from the client's Include constants.
const includeDistances chroma.Include = "distances"

type chromaCollection struct {
	col chroma.Collection
}

func (c *chromaCollection) Name() string {
	return c.col.Name()
}

func (c *chromaCollection) Add(ctx context.Context, records []Record) error {
	ids := make([]chroma.DocumentID, len(records))
	texts := make([]string, len(records))
	vecs := make([]embeddings.Embedding, len(records))
	metas := make([]chroma.DocumentMetadata, len(records))

	for i, r := range records {
		ids[i] = chroma.DocumentID(r.ID)
		texts[i] = r.Text
		vecs[i] = embeddings.NewEmbeddingFromFloat32(r.Vector)
		if flat := flattenMetadata(r.Metadata); len(flat) > 0 {
			md, err := chroma.NewDocumentMetadataFromMap(flat)
			if err != nil {
				return fmt.Errorf("invalid metadata for %s: %w", r.ID, err)
			}
			metas[i] = md
		}
	}

	return c.col.Add(ctx,
		chroma.WithIDs(ids...),
		chroma.WithTexts(texts...),
		chroma.WithEmbeddings(vecs...),
		chroma.WithMetadatas(metas...),
	)
}

func (c *chromaCollection) Query(ctx context.Context, vector []float32, n int) ([]types.SearchResult, error) {
	qr, err := c.col.Query(ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chroma.WithNResults(n),
		chroma.WithIncludeQuery(chroma.IncludeDocuments, chroma.IncludeMetadatas, includeDistances),
	)
	if err != nil {
		return nil, err
	}

	idGroups := qr.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return nil, nil
	}
	docs := first(qr.GetDocumentsGroups())
	metas := first(qr.GetMetadatasGroups())
	dists := first(qr.GetDistancesGroups())
	if len(dists) < len(idGroups[0]) {
		return nil, fmt.Errorf("%w: got %d distances for %d results", ErrMissingDistances, len(dists), len(idGroups[0]))
	}

	results := make([]types.SearchResult, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		r := types.SearchResult{ID: string(id)}
		if i < len(docs) && docs[i] != nil {
			r.Text = docs[i].ContentString()
		}
		if i < len(metas) && metas[i] != nil {
			r.Metadata = metadataToMap(metas[i])
		}
		r.Distance = float64(dists[i])
		results = append(results, r)
	}
	return results, nil
}

func (c *chromaCollection) IDsWhere(ctx context.Context, key, value string) ([]string, error) {
	res, err := c.col.Get(ctx, chroma.WithWhereGet(chroma.EqString(key, value)))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.GetIDs()))
	for _, id := range res.GetIDs() {
		ids = append(ids, string(id))
	}
	return ids, nil
}

func (c *chromaCollection) Delete(ctx context.Context, ids []string) error {
	docIDs := make([]chroma.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chroma.DocumentID(id)
	}
	return c.col.Delete(ctx, chroma.WithIDsDelete(docIDs...))
}

func (c *chromaCollection) Count(ctx context.Context) (int, error) {
	return c.col.Count(ctx)
}

// embeddingFunction lets Chroma embed through the configured embedder.
type embeddingFunction struct {
	client embedder.Client
}

func (e embeddingFunction) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	vecs, err := e.client.EmbedTexts(ctx, texts, 0)
	if err != nil {
		return nil, err
	}
	out := make([]embeddings.Embedding, len(vecs))
	for i, v := range vecs {
		out[i] = embeddings.NewEmbeddingFromFloat32(v)
	}
	return out, nil
}

func (e embeddingFunction) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	v, err := e.client.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbeddingFromFloat32(v), nil
}

func first[S ~[]E, E any](groups []S) S {
	if len(groups) == 0 {
		return nil
	}
	return groups[0]
}

// flattenMetadata keeps the scalar types Chroma accepts and stringifies the rest.
func flattenMetadata(m types.Metadata) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func metadataToMap(md chroma.DocumentMetadata) types.Metadata {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil
	}
	var m types.Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
