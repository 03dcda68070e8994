package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/soundprediction/skls/pkg/telemetry"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default values used by Setup when the corresponding Config field is zero.
const (
	DefaultLogFile    = "./log/application.log"
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// Config describes the root logger.
type Config struct {
	Level  slog.Level
	Format string // text or json
	// File mirrors console output to a rotating file when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Color enables coloured console output for the text format.
	Color bool
	// TelemetryPath enables parquet error telemetry when non-empty.
	TelemetryPath string
	// Output overrides the console writer (stdout).
	Output io.Writer
}

var (
	mu         sync.RWMutex
	configured bool
	root       *slog.Logger
	closers    []io.Closer

	globalCustom *slog.Logger
	namedCustom  = map[string]*slog.Logger{}
)

// Setup configures the root logger once for the whole process and installs it
// as slog.Default. Subsequent calls return the already configured root logger.
func Setup(cfg Config) (*slog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if configured {
		return root, nil
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	handlers := []slog.Handler{newHandler(out, cfg.Format, cfg.Color, opts)}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays),
			LocalTime:  true,
		}
		closers = append(closers, fileWriter)
		handlers = append(handlers, newHandler(fileWriter, cfg.Format, false, opts))
	}

	var h slog.Handler = fanout(handlers)
	if cfg.TelemetryPath != "" {
		ph, err := telemetry.NewParquetHandler(h, cfg.TelemetryPath)
		if err != nil {
			return nil, err
		}
		closers = append(closers, ph)
		h = ph
	}

	root = slog.New(h)
	slog.SetDefault(root)
	configured = true
	return root, nil
}

// IsConfigured reports whether Setup has run.
func IsConfigured() bool {
	mu.RLock()
	defer mu.RUnlock()
	return configured
}

// Shutdown flushes and closes file and telemetry outputs and allows Setup to
// run again.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	closers = nil
	configured = false
	root = nil
	return errors.Join(errs...)
}

// NewDefaultLogger creates a coloured text logger on stdout.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(newColorHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetCustom registers a custom logger. An empty name sets the global custom
// logger used by every component.
func SetCustom(l *slog.Logger, name string) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		globalCustom = l
		return
	}
	namedCustom[name] = l
}

// Custom returns a registered custom logger, or nil. An empty name returns the
// global custom logger.
func Custom(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if name == "" {
		return globalCustom
	}
	return namedCustom[name]
}

// ResetCustom removes a custom logger. An empty name resets the global one.
func ResetCustom(name string) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		globalCustom = nil
		return
	}
	delete(namedCustom, name)
}

// AllCustom returns a copy of the named custom loggers.
func AllCustom() map[string]*slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]*slog.Logger, len(namedCustom))
	for k, v := range namedCustom {
		out[k] = v
	}
	return out
}

type getOptions struct {
	useCustom  bool
	customName string
}

// GetOption customises Get.
type GetOption func(*getOptions)

// WithCustomName asks Get to prefer the custom logger registered under name.
func WithCustomName(name string) GetOption {
	return func(o *getOptions) { o.customName = name }
}

// WithoutCustom makes Get ignore every custom logger.
func WithoutCustom() GetOption {
	return func(o *getOptions) { o.useCustom = false }
}

// Get returns the logger a component should use. Resolution order is the
// requested named custom logger, the global custom logger, then the root
// logger tagged with the component name.
func Get(name string, opts ...GetOption) *slog.Logger {
	o := getOptions{useCustom: true}
	for _, opt := range opts {
		opt(&o)
	}

	mu.RLock()
	defer mu.RUnlock()

	if o.useCustom && o.customName != "" {
		if l, ok := namedCustom[o.customName]; ok && l != nil {
			return l
		}
	}
	if o.useCustom && globalCustom != nil {
		return globalCustom
	}

	base := root
	if base == nil {
		base = slog.Default()
	}
	return base.With("logger", name)
}

// ParseLevel converts a level name into an slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, colored bool, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		if colored {
			return newColorHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// fanout sends every record to all of its handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
