// Package logging configures structured slog logging for the daemon and CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"revoice/internal/config"
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	Level string
	// Format selects the handler: "console" for human-readable output,
	// "json" for machine-readable logs.
	Format string
	// OutputPaths are file paths or "stdout"/"stderr".
	OutputPaths []string
	// IncludeCaller adds source file/line to each record.
	IncludeCaller bool
}

// New builds a logger from the given options.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	writer, err := openWriters(paths)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handler = newPrettyHandler(writer, level)
	case "json":
		handler = newJSONHandler(writer, level, opts.IncludeCaller)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(handler), nil
}

// NewFromConfig builds the daemon logger: console or JSON on stdout plus a
// JSON file under the configured log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logDir, err := config.ExpandPath(cfg.Paths.LogDir)
	if err != nil {
		return nil, fmt.Errorf("expand log directory: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(logDir, "revoice.log")},
	})
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func openWriters(paths []string) (io.Writer, error) {
	writers := make([]io.Writer, 0, len(paths))
	for _, path := range paths {
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func newJSONHandler(w io.Writer, level slog.Level, includeCaller bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: includeCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			case slog.LevelKey:
				a.Key = "level"
				a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
			case slog.MessageKey:
				a.Key = "msg"
			}
			return a
		},
	})
}

// prettyHandler renders human-readable console lines:
//
//	15:04:05 INFO  [component] message key=value
type prettyHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewConsoleHandler exposes the console handler for callers that manage
// their own writer, such as tests capturing output.
func NewConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return newPrettyHandler(w, level)
}

func newPrettyHandler(w io.Writer, level slog.Level) *prettyHandler {
	return &prettyHandler{
		mu:    &sync.Mutex{},
		out:   w,
		level: level,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(attr))
	}
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.group = h.appendPrefix(name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:    h.mu,
		out:   h.out,
		level: h.level,
		attrs: append([]slog.Attr(nil), h.attrs...),
		group: h.group,
	}
}

func (h *prettyHandler) qualify(attr slog.Attr) slog.Attr {
	if h.group == "" {
		return attr
	}
	attr.Key = h.group + "." + attr.Key
	return attr
}

func (h *prettyHandler) appendPrefix(name string) string {
	if h.group == "" {
		return name
	}
	return h.group + "." + name
}

type kv struct {
	key   string
	value string
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	pairs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		pairs = flattenAttr(pairs, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		pairs = flattenAttr(pairs, h.group, attr)
		return true
	})

	component := ""
	filtered := pairs[:0]
	for _, pair := range pairs {
		if pair.key == FieldComponent && component == "" {
			component = pair.value
			continue
		}
		filtered = append(filtered, pair)
	}
	pairs = filtered

	var builder strings.Builder
	builder.WriteString(record.Time.Format("15:04:05"))
	builder.WriteByte(' ')
	builder.WriteString(levelLabel(record.Level))
	if component != "" {
		builder.WriteString(" [")
		builder.WriteString(component)
		builder.WriteByte(']')
	}
	builder.WriteByte(' ')
	builder.WriteString(record.Message)
	for _, pair := range pairs {
		builder.WriteByte(' ')
		builder.WriteString(pair.key)
		builder.WriteByte('=')
		builder.WriteString(pair.value)
	}
	builder.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, builder.String())
	return err
}

func flattenAttr(pairs []kv, prefix string, attr slog.Attr) []kv {
	attr.Value = attr.Value.Resolve()
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, nested := range attr.Value.Group() {
			pairs = flattenAttr(pairs, key, nested)
		}
		return pairs
	}
	if key == "" {
		return pairs
	}
	return append(pairs, kv{key: key, value: formatValue(attr.Value)})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
