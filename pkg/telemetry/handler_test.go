package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetHandlerWritesErrorsOnly(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	h, err := NewParquetHandler(slog.NewTextHandler(&console, nil), dir)
	require.NoError(t, err)

	log := slog.New(h).With("logger", "embedder")
	ctx := context.WithValue(context.Background(), types.ContextKeyUserID, "u-1")

	log.InfoContext(ctx, "embedding ok")
	log.ErrorContext(ctx, "embedding failed", "error", errors.New("connection refused"))

	require.NoError(t, h.Close())

	assert.Contains(t, console.String(), "embedding ok")
	assert.Contains(t, console.String(), "embedding failed")

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	rows, err := parquet.ReadFile[LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "embedding failed", rows[0].Message)
	assert.Equal(t, "embedder", rows[0].Component)
	assert.Equal(t, "u-1", rows[0].UserID)
	assert.Contains(t, rows[0].Attributes, "connection refused")
}

func TestParquetHandlerFlushesAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)
	h.SetBatchSize(2)

	log := slog.New(h)
	log.Error("one")
	log.Error("two")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// nothing buffered, nothing written
	require.NoError(t, h.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
