package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soundprediction/skls/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	article := graph.Article{Name: "Summit", Text: "body", Date: graph.StringPtr("2024-05-01")}

	cp, existed, err := m.LoadOrCreate(ctx, article)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, article.ID(), cp.ArticleID)
	assert.Equal(t, StepInitial, cp.Step)

	cp.StoredChunks = []string{"a", "b"}
	require.NoError(t, m.SaveWithStep(ctx, cp, StepStoredChunks))

	loaded, existed, err := m.LoadOrCreate(ctx, article)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, StepStoredChunks, loaded.Step)
	assert.Equal(t, []string{"a", "b"}, loaded.StoredChunks)
	assert.Equal(t, "2024-05-01", *loaded.Article.Date)

	require.NoError(t, m.SaveWithError(ctx, loaded, errors.New("neo4j down")))
	failed, err := m.FindFailed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "neo4j down", failed[0].LastError)
	assert.Equal(t, 1, failed[0].AttemptCount)

	require.NoError(t, m.Delete(ctx, article.ID()))
	require.NoError(t, m.Delete(ctx, article.ID()))
	missing, err := m.Load(ctx, article.ID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPathTraversalPrevention(t *testing.T) {
	m := newTestManager(t)

	for _, id := range []string{"", "..", "../etc/passwd", "a/b", `a\b`, "a\x00b"} {
		_, err := m.Path(id)
		assert.ErrorIs(t, err, ErrInvalidArticleID, "id %q", id)
	}

	p, err := m.Path("abc123")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "checkpoint_abc123.json"), p)
}

func TestListSkipsGarbage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.Save(ctx, New(graph.Article{Name: "one"})))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "note.txt"), []byte("x"), 0o644))

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCleanOld(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.Save(ctx, New(graph.Article{Name: "old"})))

	removed, err := m.CleanOld(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = m.CleanOld(ctx, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSteps(t *testing.T) {
	cp := New(graph.Article{Name: "x"})
	assert.Equal(t, "0% (initial)", cp.Progress())
	assert.True(t, cp.Reached(StepInitial))
	assert.False(t, cp.Reached(StepStoredChunks))

	cp.Step = StepExtractedGraph
	assert.True(t, cp.Reached(StepStoredDocument))
	assert.False(t, cp.Reached(StepCompleted))
	assert.Equal(t, "75% (extracted_graph)", cp.Progress())

	cp.Step = "bogus"
	assert.Equal(t, "Unknown step", cp.Progress())

	assert.True(t, cp.CanRetry(3, time.Hour))
	cp.AttemptCount = 3
	assert.False(t, cp.CanRetry(3, time.Hour))
}
