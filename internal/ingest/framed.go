package ingest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/glizzus/opusscan/internal/opus"
)

// batchSize is how many packets container readers collect before handing
// them to a Handler.
const batchSize = 64

// FramedReader reads length-prefixed Opus packets from an io.Reader.
// Each packet is a uint16 little-endian length followed by that many bytes.
type FramedReader struct {
	r      io.Reader
	dec    opus.Decoder
	logger *slog.Logger
}

// NewFramedReader returns a new FramedReader that reads from r.
func NewFramedReader(r io.Reader, logger *slog.Logger) *FramedReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FramedReader{r: r, dec: opus.Decoder{Exact: true}, logger: logger}
}

// ReadPacket reads and returns the next raw Opus packet.
// Returns io.EOF when there are no more packets.
func (f *FramedReader) ReadPacket() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	packet := make([]byte, size)
	if _, err := io.ReadFull(f.r, packet); err != nil {
		return nil, err
	}
	return packet, nil
}

// Run reads packets until EOF, handing them to h in batches. Packets that do
// not decode are counted as invalid and skipped.
func (f *FramedReader) Run(ctx context.Context, h Handler) (Summary, error) {
	var (
		sum    Summary
		offset int64
		batch  []Record
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := h.HandlePackets(ctx, batch...)
		batch = nil
		if err != nil {
			return fmt.Errorf("failed to handle packets: %w", err)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		packet, err := f.ReadPacket()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				f.logger.Warn("truncated packet at end of input", slog.Int64("offset", offset))
				sum.Invalid++
			} else if !errors.Is(err, io.EOF) {
				return sum, fmt.Errorf("failed to read packet: %w", err)
			}
			return sum, flush()
		}

		frameStart := offset + 2
		offset = frameStart + int64(len(packet))
		sum.Bytes = offset

		p, err := f.dec.Decode(packet)
		if err != nil {
			f.logger.Debug(
				"skipping invalid packet",
				slog.Int64("offset", frameStart),
				slog.Any("error", err),
			)
			sum.Invalid++
			continue
		}

		batch = append(batch, sum.record(frameStart, p))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
}
