package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const timeLayout = "2006-01-02 15:04:05,000"

var (
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	persistColor = color.New(color.FgGreen)
)

// colorHandler renders "time - name - LEVEL - message k=v" lines, coloured by
// level. Info messages about persistence are highlighted in green.
type colorHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	opts  slog.HandlerOptions
	name  string
	attrs []slog.Attr
	group string
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	h := &colorHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	name := h.name
	if name == "" {
		name = "root"
	}
	fmt.Fprintf(&buf, "%s - %s - %s - %s", r.Time.Format(timeLayout), name, r.Level.String(), r.Message)

	writeAttr := func(a slog.Attr) {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&buf, " %s=%v", key, a.Value.Any())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	line := buf.String()
	switch {
	case r.Level >= slog.LevelError:
		line = errorColor.Sprint(line)
	case r.Level >= slog.LevelWarn:
		line = warnColor.Sprint(line)
	case isPersistMessage(r.Message):
		line = persistColor.Sprint(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if a.Key == "logger" && h.group == "" {
			clone.name = a.Value.String()
			continue
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func isPersistMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "persist") || strings.Contains(m, "stored")
}

