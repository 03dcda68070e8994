package skls

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/soundprediction/skls"
	"github.com/soundprediction/skls/pkg/checkpoint"
	"github.com/soundprediction/skls/pkg/logger"
	"github.com/soundprediction/skls/pkg/utils"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [PATH]",
	Short: "Ingest an article file, or every file under a folder",
	Long: `Ingest chunks each article, stores new chunks in Chroma, records the
document and, unless --skip-graph is set, writes its knowledge graph to Neo4j.
Folders are processed in parallel; one failing file does not stop the rest.

With --checkpoint-dir, failed articles keep a checkpoint. --retry-failed
re-ingests them from where they stopped and --clean-checkpoints-older-than
drops stale ones. PATH may be omitted when only maintaining checkpoints.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		workers, _ := cmd.Flags().GetInt("workers")
		opts := &skls.IngestOptions{}
		opts.MaxChunkChars, _ = cmd.Flags().GetInt("max-chunk-chars")
		opts.SimilarityThreshold, _ = cmd.Flags().GetFloat64("threshold")
		opts.SkipGraph, _ = cmd.Flags().GetBool("skip-graph")

		retryFailed, _ := cmd.Flags().GetBool("retry-failed")
		maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
		maxAge, _ := cmd.Flags().GetDuration("max-age")
		cleanAge, _ := cmd.Flags().GetDuration("clean-checkpoints-older-than")
		dir, _ := cmd.Flags().GetString("checkpoint-dir")

		if len(args) == 0 && !retryFailed && cleanAge <= 0 {
			return errors.New("nothing to do: pass PATH, --retry-failed or --clean-checkpoints-older-than")
		}
		if (retryFailed || cleanAge > 0) && dir == "" {
			return errors.New("--retry-failed and --clean-checkpoints-older-than require --checkpoint-dir")
		}
		if workers <= 0 {
			workers = cfg.Workers.MaxWorkers
		}

		var clientOpts []skls.Option
		if dir != "" {
			cps, err := checkpoint.NewManager(dir)
			if err != nil {
				return err
			}
			clientOpts = append(clientOpts, skls.WithCheckpoints(cps))
		}

		client, err := newClient(cmd.Context(), clientOpts...)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		log := logger.Get("ingest")

		if cleanAge > 0 {
			removed, err := client.CleanCheckpoints(cmd.Context(), cleanAge)
			if err != nil {
				return err
			}
			log.Info("Removed stale checkpoints", "count", removed, "older_than", cleanAge)
		}
		if retryFailed {
			results, err := client.RetryFailed(cmd.Context(), opts, maxAttempts, maxAge)
			log.Info("Retried failed articles", "succeeded", len(results))
			if err != nil {
				return err
			}
		}
		if len(args) == 0 {
			return nil
		}

		ingestFile := func(ctx context.Context, path string) error {
			article, err := articleFromFile(path, "", date)
			if err != nil {
				return err
			}
			res, err := client.IngestArticle(ctx, article, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Info("Ingested article",
				"path", path,
				"article_id", res.ArticleID,
				"stored", len(res.StoredChunks),
				"skipped", res.SkippedChunks)
			return nil
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return ingestFile(cmd.Context(), args[0])
		}
		return utils.ApplyToAllFiles(cmd.Context(), args[0], ingestFile, utils.ApplyOptions{
			MaxWorkers: workers,
			Progress:   cmd.ErrOrStderr(),
			Logger:     log,
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("date", "", "publication date applied to every article (YYYY-MM-DD)")
	ingestCmd.Flags().Int("workers", 0, "files processed in parallel (default from config)")
	ingestCmd.Flags().Int("max-chunk-chars", skls.DefaultMaxChunkChars, "maximum chunk size in characters")
	ingestCmd.Flags().Float64("threshold", 0, "duplicate similarity threshold (default 0.95)")
	ingestCmd.Flags().Bool("skip-graph", false, "store chunks only")
	ingestCmd.Flags().String("checkpoint-dir", "", "resume failed articles from checkpoints kept in this directory")
	ingestCmd.Flags().Bool("retry-failed", false, "re-ingest articles whose checkpoint recorded an error")
	ingestCmd.Flags().Int("max-attempts", 3, "attempts after which a failed article is no longer retried")
	ingestCmd.Flags().Duration("max-age", 7*24*time.Hour, "failed articles first seen longer ago are no longer retried")
	ingestCmd.Flags().Duration("clean-checkpoints-older-than", 0, "remove checkpoints not updated within this duration")
}
