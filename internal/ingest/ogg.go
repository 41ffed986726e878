package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/glizzus/opusscan/internal/opus"
	"github.com/jonas747/ogg"
)

var (
	opusHeadMagic = []byte("OpusHead")
	opusTagsMagic = []byte("OpusTags")
)

// isHeaderPacket reports whether packet is one of the Ogg Opus identification
// or comment headers rather than audio.
func isHeaderPacket(packet []byte) bool {
	return bytes.HasPrefix(packet, opusHeadMagic) || bytes.HasPrefix(packet, opusTagsMagic)
}

// OggReader reads Opus packets out of an Ogg container. The container gives
// the exact length of every packet, so packets are decoded in exact mode.
type OggReader struct {
	decoder *ogg.PacketDecoder
	dec     opus.Decoder
	logger  *slog.Logger
}

// NewOggReader returns an OggReader that demuxes r.
func NewOggReader(r io.Reader, logger *slog.Logger) *OggReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &OggReader{
		decoder: ogg.NewPacketDecoder(ogg.NewDecoder(r)),
		dec:     opus.Decoder{Exact: true},
		logger:  logger,
	}
}

// Run demuxes packets until the end of the container, handing audio packets
// to h in batches. Header packets and empty packets are skipped.
func (o *OggReader) Run(ctx context.Context, h Handler) (Summary, error) {
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

		packet, _, err := o.decoder.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return sum, fmt.Errorf("failed to demux ogg packet: %w", err)
			}
			return sum, flush()
		}
		// An end-of-stream page may carry an empty packet.
		if len(packet) == 0 {
			continue
		}
		if isHeaderPacket(packet) {
			o.logger.Debug("skipping ogg opus header", slog.String("magic", string(packet[:8])))
			continue
		}

		start := offset
		offset += int64(len(packet))
		sum.Bytes = offset

		p, err := o.dec.Decode(packet)
		if err != nil {
			o.logger.Debug(
				"skipping invalid packet",
				slog.Int64("offset", start),
				slog.Any("error", err),
			)
			sum.Invalid++
			continue
		}

		batch = append(batch, sum.record(start, p))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
}
