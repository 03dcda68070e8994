package dto

import (
	"fmt"
	"strings"

	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/types"
)

// EmbedRequest asks for the embeddings of one or more texts.
type EmbedRequest struct {
	Texts     []string `json:"texts" binding:"required"`
	BatchSize int      `json:"batch_size,omitempty"`
}

// Validate performs validation on EmbedRequest
func (r *EmbedRequest) Validate() error {
	if len(r.Texts) == 0 {
		return ErrEmptyText
	}
	if len(r.Texts) > MaxTexts {
		return ErrTooManyTexts
	}
	for i, t := range r.Texts {
		if len(t) > MaxContentLength {
			return fmt.Errorf("text %d: %w", i, ErrContentTooLong)
		}
	}
	return nil
}

// EmbedResponse carries index-aligned embeddings. Failed texts are null.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// StoreChunkRequest stores a single chunk.
type StoreChunkRequest struct {
	Text     string         `json:"text" binding:"required"`
	Metadata types.Metadata `json:"metadata,omitempty"`
	ID       string         `json:"id,omitempty"`
}

// Validate performs validation on StoreChunkRequest
func (r *StoreChunkRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// StoreChunkResponse returns the id of a stored chunk.
type StoreChunkResponse struct {
	ID string `json:"id"`
}

// IngestArticleRequest ingests an article.
type IngestArticleRequest struct {
	Name          string  `json:"name" binding:"required"`
	Text          string  `json:"text" binding:"required"`
	Date          *string `json:"date,omitempty"`
	MaxChunkChars int     `json:"max_chunk_chars,omitempty"`
	SkipGraph     bool    `json:"skip_graph,omitempty"`
}

// Validate performs validation on IngestArticleRequest
func (r *IngestArticleRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// Article converts the request to a graph.Article.
func (r *IngestArticleRequest) Article() graph.Article {
	return graph.Article{Name: r.Name, Text: r.Text, Date: r.Date}
}

// IngestArticleResponse summarises an ingestion.
type IngestArticleResponse struct {
	ArticleID     string                `json:"article_id"`
	StoredChunks  []string              `json:"stored_chunks"`
	SkippedChunks int                   `json:"skipped_chunks"`
	Graph         *graph.KnowledgeGraph `json:"graph,omitempty"`
}

// DeleteDocumentResponse reports how many chunks were removed.
type DeleteDocumentResponse struct {
	DocID         string `json:"doc_id"`
	DeletedChunks int    `json:"deleted_chunks"`
}
