package dto

import (
	"strings"

	"github.com/soundprediction/skls/pkg/types"
)

// SearchQuery represents a similarity search request
type SearchQuery struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate performs validation on SearchQuery
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.TopK > MaxTopK {
		return ErrTopKTooLarge
	}
	return nil
}

// SearchHit is one search result.
type SearchHit struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Metadata   types.Metadata `json:"metadata,omitempty"`
	Distance   float64        `json:"distance"`
	Similarity float64        `json:"similarity"`
}

// SearchResults represents search results
type SearchResults struct {
	Results []SearchHit `json:"results"`
}

// NewSearchResults converts store results to the API shape.
func NewSearchResults(results []types.SearchResult) SearchResults {
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			ID:         r.ID,
			Text:       r.Text,
			Metadata:   r.Metadata,
			Distance:   r.Distance,
			Similarity: r.Similarity(),
		}
	}
	return SearchResults{Results: hits}
}

// CollectionsResponse lists collection names.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}
