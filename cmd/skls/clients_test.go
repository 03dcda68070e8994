package skls

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	md, err := parseMetadata([]string{"source=rss", "lang=ru=RU"})
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{"source": "rss", "lang": "ru=RU"}, md)

	md, err = parseMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, md)

	_, err = parseMetadata([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseMetadata([]string{"=x"})
	assert.Error(t, err)
}

func TestArticleFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summit-news.txt")
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o644))

	a, err := articleFromFile(path, "", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "summit-news", a.Name)
	assert.Equal(t, "body", a.Text)
	require.NotNil(t, a.Date)
	assert.Equal(t, "2024-05-01", *a.Date)

	a, err = articleFromFile(path, "Custom", "")
	require.NoError(t, err)
	assert.Equal(t, "Custom", a.Name)
	assert.Nil(t, a.Date)

	_, err = articleFromFile(filepath.Join(t.TempDir(), "missing.txt"), "", "")
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	kg := graph.KnowledgeGraph{Category: graph.CategorySports, Topic: "финал"}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", kg))
	assert.Contains(t, buf.String(), `"topic": "финал"`)

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "yaml", kg))
	assert.Contains(t, buf.String(), "topic: финал")
	assert.Contains(t, buf.String(), "category: Спорт")

	assert.Error(t, writeOutput(&buf, "xml", kg))
}

func TestIngestRequiresWork(t *testing.T) {
	setFlag := func(t *testing.T, name, value string) {
		t.Helper()
		f := ingestCmd.Flags().Lookup(name)
		require.NotNil(t, f)
		old := f.Value.String()
		require.NoError(t, ingestCmd.Flags().Set(name, value))
		t.Cleanup(func() { _ = ingestCmd.Flags().Set(name, old) })
	}

	t.Run("no path and no maintenance", func(t *testing.T) {
		err := ingestCmd.RunE(ingestCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to do")
	})

	t.Run("retry without checkpoint dir", func(t *testing.T) {
		setFlag(t, "retry-failed", "true")
		err := ingestCmd.RunE(ingestCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "require --checkpoint-dir")
	})

	t.Run("clean without checkpoint dir", func(t *testing.T) {
		setFlag(t, "clean-checkpoints-older-than", "24h")
		err := ingestCmd.RunE(ingestCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "require --checkpoint-dir")
	})
}
