// Package logging builds the structured logger vntransl uses throughout the
// pipeline: a log/slog.Logger whose handler renders level tags through
// charmbracelet/lipgloss styles, adapted from the teacher's panic-screen
// styling (pkg/utils/panic.go) into a plain colorized log-line prefix.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(false)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
)

// Handler is a minimal slog.Handler that writes one colorized line per
// record: "LEVEL time message key=value ...".
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// New builds a Handler writing to out at the given minimum level.
func New(out io.Writer, level slog.Leveler) *Handler {
	return &Handler{mu: &sync.Mutex{}, out: out, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(styleFor(r.Level).Render(tagFor(r.Level)))
	b.WriteByte(' ')
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(strings.Join(h.groups, "."))
	if len(h.groups) > 0 {
		b.WriteByte('.')
	}
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func tagFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func styleFor(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return errorStyle
	case level >= slog.LevelWarn:
		return warnStyle
	case level >= slog.LevelInfo:
		return infoStyle
	default:
		return debugStyle
	}
}

// ParseLevel maps the --log-level flag's values to a slog.Level, defaulting
// to Info on an unrecognized string.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// NewLogger builds the top-level logger used by cmd/vntransl.
func NewLogger(out io.Writer, levelName string) *slog.Logger {
	return slog.New(New(out, ParseLevel(levelName)))
}
