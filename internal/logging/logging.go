// Package logging configures the structured logger shared by the CLI and
// the service, generalized into a reusable Config so both the batch
// driver and the Flight service share one setup instead of each
// hand-rolling slog.New at their own entry point.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rangeknn/hybridindex/internal/metrics"
)

// Config holds logger configuration options.
type Config struct {
	// Format is "json" or "text".
	Format string
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Output is where logs are written; defaults to os.Stdout.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{Format: "json", Level: "info", Output: os.Stdout}
}

// New builds an slog.Logger from cfg. Every record is counted by level in
// the rangeknn_log_entries_total Prometheus metric before being handed to
// the underlying handler.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&metricsHandler{Handler: handler}), nil
}

// Discard returns a logger that drops all output, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// metricsHandler wraps an slog.Handler to add Prometheus counters per log
// level.
type metricsHandler struct {
	slog.Handler
}

func (h *metricsHandler) Handle(ctx context.Context, r slog.Record) error {
	metrics.LogEntriesTotal.WithLabelValues(r.Level.String()).Inc()
	return h.Handler.Handle(ctx, r)
}

func (h *metricsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &metricsHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *metricsHandler) WithGroup(name string) slog.Handler {
	return &metricsHandler{Handler: h.Handler.WithGroup(name)}
}
