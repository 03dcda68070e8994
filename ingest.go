package skls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soundprediction/skls/pkg/checkpoint"
	"github.com/soundprediction/skls/pkg/graph"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/types"
	"github.com/soundprediction/skls/pkg/utils"
	"github.com/soundprediction/skls/pkg/vectorstore"
)

// DefaultMaxChunkChars is the chunk size used when IngestOptions leaves it unset.
const DefaultMaxChunkChars = 1000

// ChunkIndexKey is the chunk metadata key holding the chunk's position in
// its article.
const ChunkIndexKey = "chunk_index"

// IngestOptions controls IngestArticle.
type IngestOptions struct {
	// MaxChunkChars bounds the size of each chunk in characters.
	MaxChunkChars int
	// SimilarityThreshold above which a chunk counts as already stored.
	SimilarityThreshold float64
	// SkipGraph stores chunks only.
	SkipGraph bool
}

// IngestResult summarises one ingestion.
type IngestResult struct {
	ArticleID     string
	StoredChunks  []string
	SkippedChunks int
	Graph         *graph.KnowledgeGraph
}

// ErrNoCheckpoints is returned by checkpoint maintenance on a client built
// without WithCheckpoints.
var ErrNoCheckpoints = errors.New("checkpoints are not enabled")

// RetryFailed re-ingests every article whose checkpoint recorded an error,
// has fewer than maxAttempts attempts and was created within maxAge. Each
// article resumes after its last finished step. Results hold the articles
// that succeeded; failures are joined into the returned error.
func (c *Client) RetryFailed(ctx context.Context, opts *IngestOptions, maxAttempts int, maxAge time.Duration) ([]*IngestResult, error) {
	if c.checkpoints == nil {
		return nil, ErrNoCheckpoints
	}
	failed, err := c.checkpoints.FindFailed(ctx, maxAttempts)
	if err != nil {
		return nil, err
	}

	var results []*IngestResult
	var errs []error
	for _, cp := range failed {
		if !cp.CanRetry(maxAttempts, maxAge) {
			c.log.InfoContext(ctx, "Skipping expired checkpoint", "article_id", cp.ArticleID, "attempts", cp.AttemptCount)
			continue
		}
		c.log.InfoContext(ctx, "Retrying failed article",
			"article_id", cp.ArticleID,
			"progress", cp.Progress(),
			"attempts", cp.AttemptCount,
			"last_error", cp.LastError)
		res, err := c.IngestArticle(ctx, cp.Article, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("article %s: %w", cp.ArticleID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// CleanCheckpoints removes checkpoints not updated within maxAge and returns
// how many were removed.
func (c *Client) CleanCheckpoints(ctx context.Context, maxAge time.Duration) (int, error) {
	if c.checkpoints == nil {
		return 0, ErrNoCheckpoints
	}
	return c.checkpoints.CleanOld(ctx, maxAge)
}

// IngestArticle chunks and stores the article text, records the article in
// the documents collection and, unless disabled, extracts and writes its
// knowledge graph. With checkpoints enabled a failed ingestion resumes from
// the last finished step.
func (c *Client) IngestArticle(ctx context.Context, article graph.Article, opts *IngestOptions) (*IngestResult, error) {
	if article.Name == "" {
		return nil, fmt.Errorf("article name: %w", types.ErrEmptyID)
	}
	if strings.TrimSpace(article.Text) == "" {
		return nil, types.ErrEmptyContent
	}
	if opts == nil {
		opts = &IngestOptions{}
	}
	defer logger.MeasureTime(c.log, "ingest_article")()

	cp := checkpoint.New(article)
	if c.checkpoints != nil {
		var resumed bool
		var err error
		cp, resumed, err = c.checkpoints.LoadOrCreate(ctx, article)
		if err != nil {
			return nil, err
		}
		if resumed {
			c.log.InfoContext(ctx, "Resuming article ingestion", "article_id", cp.ArticleID, "progress", cp.Progress())
		}
		cp.Article = article
	}

	res, err := c.ingest(ctx, cp, opts)
	if c.checkpoints == nil {
		return res, err
	}
	if err != nil {
		if serr := c.checkpoints.SaveWithError(ctx, cp, err); serr != nil {
			c.log.WarnContext(ctx, "Failed to save checkpoint", "article_id", cp.ArticleID, "error", serr)
		}
		return res, err
	}
	if derr := c.checkpoints.Delete(ctx, cp.ArticleID); derr != nil {
		c.log.WarnContext(ctx, "Failed to delete checkpoint", "article_id", cp.ArticleID, "error", derr)
	}
	return res, nil
}

func (c *Client) ingest(ctx context.Context, cp *checkpoint.ArticleCheckpoint, opts *IngestOptions) (*IngestResult, error) {
	article := cp.Article
	res := &IngestResult{ArticleID: cp.ArticleID}
	chunks := ChunkText(article.Text, opts.MaxChunkChars)

	if !cp.Reached(checkpoint.StepStoredChunks) {
		fresh, err := c.newChunks(ctx, chunks, opts.SimilarityThreshold)
		if err != nil {
			return nil, err
		}
		cp.SkippedChunks = len(chunks) - len(fresh)

		for _, pos := range fresh {
			text := chunks[pos]
			meta := types.Metadata{
				vectorstore.DocIDKey: res.ArticleID,
				"title":              article.Name,
				ChunkIndexKey:        pos,
			}
			if article.Date != nil {
				meta["date"] = *article.Date
			}
			id, err := c.store.StoreChunk(ctx, text, meta, "")
			if err != nil {
				res.StoredChunks = cp.StoredChunks
				return res, err
			}
			cp.StoredChunks = append(cp.StoredChunks, id)
		}
		if err := c.advance(ctx, cp, checkpoint.StepStoredChunks); err != nil {
			return nil, err
		}
	}
	res.StoredChunks = cp.StoredChunks
	res.SkippedChunks = cp.SkippedChunks

	if !cp.Reached(checkpoint.StepStoredDocument) {
		docMeta := types.Metadata{"title": article.Name, "chunks": len(chunks)}
		if article.Date != nil {
			docMeta["date"] = *article.Date
		}
		if err := c.store.StoreDocument(ctx, res.ArticleID, docMeta); err != nil {
			return res, err
		}
		if err := c.advance(ctx, cp, checkpoint.StepStoredDocument); err != nil {
			return res, err
		}
		c.log.InfoContext(ctx, "Stored article chunks",
			"article_id", res.ArticleID,
			"stored", len(res.StoredChunks),
			"skipped", res.SkippedChunks)
	}

	if opts.SkipGraph || c.generator == nil {
		return res, c.advance(ctx, cp, checkpoint.StepCompleted)
	}

	if !cp.Reached(checkpoint.StepExtractedGraph) || cp.Graph == nil {
		kg, err := c.ExtractGraph(ctx, article)
		if err != nil {
			return res, err
		}
		cp.Graph = kg
		if err := c.advance(ctx, cp, checkpoint.StepExtractedGraph); err != nil {
			return res, err
		}
	}
	res.Graph = cp.Graph

	if c.graph != nil {
		if err := c.graph.WriteKnowledgeGraph(ctx, article, *cp.Graph); err != nil {
			return res, err
		}
	}
	return res, c.advance(ctx, cp, checkpoint.StepCompleted)
}

// advance moves cp to step and persists it when checkpoints are enabled.
func (c *Client) advance(ctx context.Context, cp *checkpoint.ArticleCheckpoint, step checkpoint.Step) error {
	if c.checkpoints == nil {
		cp.Step = step
		return nil
	}
	return c.checkpoints.SaveWithStep(ctx, cp, step)
}

// newChunks returns the positions of chunks that are neither repeated within
// the article nor already in the store.
func (c *Client) newChunks(ctx context.Context, chunks []string, threshold float64) ([]int, error) {
	seen := make(map[string]struct{}, len(chunks))
	unique := chunks[:0:0]
	positions := make([]int, 0, len(chunks))
	for i, ch := range chunks {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		unique = append(unique, ch)
		positions = append(positions, i)
	}

	pool := utils.NewWorkerPool(c.maxWorkers, func(ctx context.Context, text string) (bool, error) {
		return c.store.ChunkExists(ctx, text, threshold)
	})
	exists, errs := pool.ProcessItems(ctx, unique)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to check for duplicate chunks: %w", err)
	}

	fresh := make([]int, 0, len(unique))
	for i := range unique {
		if !exists[i] {
			fresh = append(fresh, positions[i])
		}
	}
	return fresh, nil
}

// ChunkText packs paragraphs (separated by blank lines) into chunks of at
// most maxChars characters. Paragraphs longer than maxChars are split on
// whitespace, or hard-cut when a single word is too long.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, para := range splitParagraphs(text) {
		for _, piece := range splitLong(para, maxChars) {
			if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(piece) > maxChars {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteString("\n\n")
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func splitLong(para string, maxChars int) []string {
	if utf8.RuneCountInString(para) <= maxChars {
		return []string{para}
	}

	var out []string
	var cur []rune
	for _, word := range strings.Fields(para) {
		w := []rune(word)
		for len(w) > maxChars {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			out = append(out, string(w[:maxChars]))
			w = w[maxChars:]
		}
		if len(cur) > 0 && len(cur)+1+len(w) > maxChars {
			out = append(out, string(cur))
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func graphPrompt(article graph.Article) string {
	var b strings.Builder
	b.WriteString("Extract a knowledge graph from the news article below. ")
	b.WriteString("Choose the category that fits best, name the main topic, ")
	b.WriteString("list the people, organizations, places and events it mentions as entities ")
	b.WriteString("and connect them with typed relationships. ")
	b.WriteString("Use lowercase entity names and the same name every time an entity is referenced.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", article.Name)
	if article.Date != nil {
		fmt.Fprintf(&b, "Date: %s\n", *article.Date)
	}
	b.WriteString("Text:\n")
	b.WriteString(article.Text)
	return b.String()
}
