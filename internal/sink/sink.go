// Package sink holds the ingest.Handler implementations that the CLI wires
// together: terminal output, logging, a Redis stream and the Postgres archive.
package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/glizzus/opusscan/internal/presenters"
)

// Multi hands every batch to each handler in order. A failing handler stops
// the batch from reaching the handlers after it.
type Multi []ingest.Handler

func (m Multi) HandlePackets(ctx context.Context, records ...ingest.Record) error {
	for _, h := range m {
		if err := h.HandlePackets(ctx, records...); err != nil {
			return err
		}
	}
	return nil
}

var _ ingest.Handler = Multi(nil)

// PrintingHandler writes a human-readable block per packet.
type PrintingHandler struct {
	w io.Writer
}

func NewPrintingHandler(w io.Writer) *PrintingHandler {
	return &PrintingHandler{w: w}
}

func (h *PrintingHandler) HandlePackets(ctx context.Context, records ...ingest.Record) error {
	for _, rec := range records {
		if _, err := io.WriteString(h.w, presenters.FormatPacket(rec)); err != nil {
			return fmt.Errorf("failed to print packet %d: %w", rec.Seq, err)
		}
	}
	return nil
}

var _ ingest.Handler = (*PrintingHandler)(nil)

// LoggingHandler logs each packet at debug level.
type LoggingHandler struct {
	logger *slog.Logger
}

func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) HandlePackets(ctx context.Context, records ...ingest.Record) error {
	for _, rec := range records {
		p := rec.Packet
		h.logger.DebugContext(
			ctx,
			"found packet",
			slog.Int("seq", rec.Seq),
			slog.Int64("offset", rec.Offset),
			slog.Int("config", int(p.Config)),
			slog.String("mode", p.Mode.String()),
			slog.String("bandwidth", p.Bandwidth.String()),
			slog.Duration("frameDuration", p.FrameDuration),
			slog.Int("frames", p.FrameCount),
			slog.Int("totalSize", p.TotalSize),
		)
	}
	return nil
}

var _ ingest.Handler = (*LoggingHandler)(nil)
