package vectorstore

import (
	"context"
	"errors"

	"github.com/soundprediction/skls/pkg/types"
)

var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrLengthMismatch is returned when parallel input slices differ in length.
	ErrLengthMismatch = errors.New("chunks, vectors and metadatas must have the same length")
	// ErrMissingDistances is returned when a query response carries no distances.
	ErrMissingDistances = errors.New("query response is missing distances")
)

// Record is one entry written to a collection. A nil Metadata is stored as
// no metadata at all.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata types.Metadata
}

// Collection is the subset of a vector collection used by ChromaClient.
type Collection interface {
	Name() string
	Add(ctx context.Context, records []Record) error
	// Query returns up to n nearest records ordered by ascending distance.
	Query(ctx context.Context, vector []float32, n int) ([]types.SearchResult, error)
	// IDsWhere returns the ids whose metadata key equals value.
	IDsWhere(ctx context.Context, key, value string) ([]string, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}

// Backend manages collections.
type Backend interface {
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	Close() error
}
