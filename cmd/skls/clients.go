package skls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundprediction/skls"
	"github.com/soundprediction/skls/pkg/alert"
	"github.com/soundprediction/skls/pkg/embedder"
	"github.com/soundprediction/skls/pkg/generator"
	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/nlp"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/soundprediction/skls/pkg/vectorstore"
	"gopkg.in/yaml.v3"
)

func newEmbedder() embedder.Client {
	return embedder.NewLlamaCppClient(embedder.Config{
		BaseURL:        cfg.Embedding.BaseURL,
		BatchSize:      cfg.Embedding.BatchSize,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
}

func newStore(ctx context.Context) (*vectorstore.ChromaClient, error) {
	return vectorstore.NewChromaClient(ctx, newEmbedder(),
		vectorstore.ChromaBackendConfig{
			BaseURL:  cfg.Chroma.BaseURL,
			Tenant:   cfg.Chroma.Tenant,
			Database: cfg.Chroma.Database,
		},
		vectorstore.Config{
			Collection:          cfg.Chroma.Collection,
			DocumentsCollection: cfg.Chroma.DocumentsCollection,
		})
}

func newGenerator(ctx context.Context) (*generator.Generator, func() error, error) {
	llm, err := nlp.NewClientFromConfig(ctx, cfg, alert.New(cfg.Alert, logger.Get("alert")))
	if err != nil {
		return nil, nil, err
	}
	return generator.New(llm), llm.Close, nil
}

func newClient(ctx context.Context, opts ...skls.Option) (*skls.Client, error) {
	return skls.NewClientFromConfig(ctx, cfg, alert.New(cfg.Alert, logger.Get("alert")), opts...)
}

// parseMetadata turns key=value pairs into chunk metadata.
func parseMetadata(pairs []string) (types.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	md := make(types.Metadata, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", p)
		}
		md[k] = v
	}
	return md, nil
}

// articleFromFile reads an article; the title defaults to the file name
// without its extension.
func articleFromFile(path, title, date string) (graph.Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return graph.Article{}, err
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	a := graph.Article{Name: title, Text: string(raw)}
	if date != "" {
		a.Date = graph.StringPtr(date)
	}
	return a, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
