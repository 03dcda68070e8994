// Package checkpoint persists the progress of article ingestion so a failed
// run can resume without repeating finished steps.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/skls/pkg/graph"
)

// ErrInvalidArticleID is returned when an article ID contains invalid characters
var ErrInvalidArticleID = errors.New("invalid article ID: contains path traversal or invalid characters")

// Step is a stage of article ingestion.
type Step string

const (
	StepInitial        Step = "initial"
	StepStoredChunks   Step = "stored_chunks"
	StepStoredDocument Step = "stored_document"
	StepExtractedGraph Step = "extracted_graph"
	StepCompleted      Step = "completed"
)

// Steps lists the stages in order.
var Steps = []Step{StepInitial, StepStoredChunks, StepStoredDocument, StepExtractedGraph, StepCompleted}

// ArticleCheckpoint is the state of a partially ingested article.
type ArticleCheckpoint struct {
	ArticleID string `json:"article_id"`
	Step      Step   `json:"step"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`

	Article graph.Article `json:"article"`

	StoredChunks  []string              `json:"stored_chunks,omitempty"`
	SkippedChunks int                   `json:"skipped_chunks"`
	Graph         *graph.KnowledgeGraph `json:"graph,omitempty"`
}

// New creates a checkpoint for article at StepInitial.
func New(article graph.Article) *ArticleCheckpoint {
	now := time.Now()
	return &ArticleCheckpoint{
		ArticleID:     article.ID(),
		Step:          StepInitial,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Article:       article,
	}
}

// Reached reports whether the checkpoint is at or past step.
func (c *ArticleCheckpoint) Reached(step Step) bool {
	return stepIndex(c.Step) >= stepIndex(step)
}

// CanRetry determines if a checkpoint should be retried based on attempt count and age
func (c *ArticleCheckpoint) CanRetry(maxAttempts int, maxAge time.Duration) bool {
	if c.AttemptCount >= maxAttempts {
		return false
	}
	return time.Since(c.CreatedAt) <= maxAge
}

// Progress returns a human-readable progress description
func (c *ArticleCheckpoint) Progress() string {
	idx := stepIndex(c.Step)
	if idx < 0 {
		return "Unknown step"
	}
	percentage := float64(idx) / float64(len(Steps)-1) * 100
	return fmt.Sprintf("%.0f%% (%s)", percentage, c.Step)
}

func stepIndex(s Step) int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// Manager stores checkpoints as JSON files in a directory.
type Manager struct {
	dir string
}

// NewManager creates a checkpoint manager.
// If dir is empty, uses os.TempDir()/skls-checkpoints
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "skls-checkpoints")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the checkpoint directory path
func (m *Manager) Dir() string {
	return m.dir
}

// validateID rejects IDs containing path separators, traversal sequences or null bytes.
func validateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, '\x00') {
		return ErrInvalidArticleID
	}
	return nil
}

func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir)
}

// Path returns the file path for an article's checkpoint.
func (m *Manager) Path(articleID string) (string, error) {
	if err := validateID(articleID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(m.dir, fmt.Sprintf("checkpoint_%s.json", articleID))
	if !isPathWithinDirectory(fullPath, m.dir) {
		return "", ErrInvalidArticleID
	}
	return fullPath, nil
}

// Save persists the checkpoint to disk
func (m *Manager) Save(_ context.Context, cp *ArticleCheckpoint) error {
	cp.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path, err := m.Path(cp.ArticleID)
	if err != nil {
		return err
	}

	// write then rename so readers never see a partial file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}
	return nil
}

// SaveWithStep updates the step and saves in one operation
func (m *Manager) SaveWithStep(ctx context.Context, cp *ArticleCheckpoint, step Step) error {
	cp.Step = step
	return m.Save(ctx, cp)
}

// SaveWithError records an error and saves in one operation
func (m *Manager) SaveWithError(ctx context.Context, cp *ArticleCheckpoint, err error) error {
	cp.AttemptCount++
	cp.LastError = err.Error()
	return m.Save(ctx, cp)
}

// Load retrieves a checkpoint from disk. A missing checkpoint yields nil, nil.
func (m *Manager) Load(_ context.Context, articleID string) (*ArticleCheckpoint, error) {
	path, err := m.Path(articleID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var cp ArticleCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// LoadOrCreate loads the checkpoint for article or creates a new one. The
// boolean reports whether an existing checkpoint was found.
func (m *Manager) LoadOrCreate(ctx context.Context, article graph.Article) (*ArticleCheckpoint, bool, error) {
	existing, err := m.Load(ctx, article.ID())
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	cp := New(article)
	if err := m.Save(ctx, cp); err != nil {
		return nil, false, err
	}
	return cp, false, nil
}

// Delete removes a checkpoint from disk
func (m *Manager) Delete(_ context.Context, articleID string) error {
	path, err := m.Path(articleID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns all readable checkpoints in the directory
func (m *Manager) List(_ context.Context) ([]*ArticleCheckpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*ArticleCheckpoint
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		var cp ArticleCheckpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		checkpoints = append(checkpoints, &cp)
	}
	return checkpoints, nil
}

// FindFailed returns checkpoints with a recorded error that still have
// attempts left.
func (m *Manager) FindFailed(ctx context.Context, maxAttempts int) ([]*ArticleCheckpoint, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var failed []*ArticleCheckpoint
	for _, cp := range all {
		if cp.LastError != "" && cp.AttemptCount < maxAttempts {
			failed = append(failed, cp)
		}
	}
	return failed, nil
}

// CleanOld removes checkpoints not updated within maxAge
func (m *Manager) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, cp := range checkpoints {
		if cp.LastUpdatedAt.Before(cutoff) {
			if err := m.Delete(ctx, cp.ArticleID); err != nil {
				continue
			}
			removed++
		}
	}
	return removed, nil
}
