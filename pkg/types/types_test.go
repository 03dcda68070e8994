package types_test

import (
	"testing"

	"github.com/soundprediction/skls/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestChunkValidate(t *testing.T) {
	c := &types.Chunk{}
	assert.ErrorIs(t, c.Validate(), types.ErrEmptyContent)

	c.Text = "some text"
	assert.NoError(t, c.Validate())
}

func TestSearchResultSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "identical", distance: 0, want: 1},
		{name: "close", distance: 0.04, want: 0.96},
		{name: "orthogonal", distance: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := types.SearchResult{Distance: tt.distance}
			assert.InDelta(t, tt.want, r.Similarity(), 1e-9)
		})
	}
}
