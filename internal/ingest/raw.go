package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/glizzus/opusscan/internal/opus"
)

const (
	DefaultBufferSize = 1 << 20
	DefaultKeepTail   = 4096

	// reserve is how many bytes must follow the cursor before a sweep decodes
	// there, unless the source is exhausted. It covers 48 frames of
	// MaxFrameSize plus headers and a few KiB of padding. A packet whose span
	// is larger waits for a refill that moves it to the start of the buffer.
	reserve = 64 << 10

	// MinBufferSize leaves room for a full reserve after any sweep.
	MinBufferSize = 2 * reserve
)

// RawOptions configures a RawReader. Zero fields take defaults, and a
// BufferSize below MinBufferSize is raised to it.
type RawOptions struct {
	BufferSize int
	KeepTail   int
	Scanner    opus.Scanner
	Logger     *slog.Logger
}

// RawReader finds packets in an unframed Opus elementary stream. It reads the
// source into a buffer, sweeps the buffer with a Scanner, and carries the
// unconsumed tail over to the next read.
type RawReader struct {
	src     io.Reader
	scanner opus.Scanner
	bufSize int
	// keepTail is how many trailing bytes survive a sweep that finds nothing.
	keepTail int
	logger   *slog.Logger
}

// NewRawReader returns a RawReader over src.
func NewRawReader(src io.Reader, opts RawOptions) *RawReader {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	opts.BufferSize = max(opts.BufferSize, MinBufferSize)
	if opts.KeepTail <= 0 {
		opts.KeepTail = DefaultKeepTail
	}
	opts.KeepTail = min(opts.KeepTail, reserve)
	if opts.Scanner.MaxProbe <= 0 {
		opts.Scanner.MaxProbe = opus.DefaultMaxProbe
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RawReader{
		src:      src,
		scanner:  opts.Scanner,
		bufSize:  opts.BufferSize,
		keepTail: opts.KeepTail,
		logger:   opts.Logger,
	}
}

// Run reads src to the end, handing the packets of every sweep to h.
// It stops early if ctx is done or h fails.
func (r *RawReader) Run(ctx context.Context, h Handler) (Summary, error) {
	var (
		sum  Summary
		buf  = make([]byte, 0, r.bufSize)
		base int64
		eof  bool
	)

	for !eof {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		n, err := io.ReadFull(r.src, buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		sum.Bytes += int64(n)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			eof = true
		case err != nil:
			return sum, fmt.Errorf("failed to read stream: %w", err)
		}

		consumed, records := r.sweep(buf, base, eof, &sum)
		r.logger.Debug(
			"swept stream buffer",
			slog.Int64("base", base),
			slog.Int("buffered", len(buf)),
			slog.Int("consumed", consumed),
			slog.Int("packets", len(records)),
		)
		if len(records) > 0 {
			if err := h.HandlePackets(ctx, records...); err != nil {
				return sum, fmt.Errorf("failed to handle packets: %w", err)
			}
		}

		buf = buf[:copy(buf, buf[consumed:])]
		base += int64(consumed)
	}
	return sum, nil
}

// sweep scans buf from the start and returns how many bytes it consumed.
// Unless eof is set, a packet with fewer than reserve bytes after it is left
// unconsumed, as is one whose span the rest of buf cannot hold. Every sweep of
// a full buffer consumes something, so the next read always has room.
func (r *RawReader) sweep(buf []byte, base int64, eof bool, sum *Summary) (int, []Record) {
	var records []Record
	cursor := 0
	for cursor < len(buf) {
		if !eof && len(buf)-cursor < reserve {
			break
		}
		m, err := r.scanner.Next(buf, cursor)
		if err != nil {
			// Nothing decodes from cursor on. Keep a short tail in case more
			// data completes a packet there.
			next := len(buf)
			if !eof {
				next = max(cursor, len(buf)-r.keepTail)
			}
			if next > cursor {
				r.logger.Warn(
					"no packet found, discarding bytes",
					slog.Int64("offset", base+int64(cursor)),
					slog.Int("discarded", next-cursor),
				)
			}
			sum.SkippedBytes += int64(next - cursor)
			cursor = next
			break
		}
		need := reserve
		if m.Offset > 0 {
			need = max(need, span(m.Packet))
		}
		if !eof && len(buf)-m.Offset < need {
			sum.SkippedBytes += int64(m.Skipped(cursor))
			cursor = m.Offset
			break
		}
		sum.SkippedBytes += int64(m.Skipped(cursor))
		records = append(records, sum.record(base+int64(m.Offset), m.Packet))
		cursor = m.Next
	}
	return cursor, records
}

// span bounds the bytes a boundary search for p reads: p at its largest, then
// the header and padding of a like packet after it.
func span(p opus.Packet) int {
	return 2*(p.PayloadOffset+p.PaddingSize) + p.FrameCount*opus.MaxFrameSize
}
