package sink

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/redis/go-redis/v9"
)

const DefaultStream = "opus_packets"

// RedisPublisher appends every packet to a Redis stream so other services can
// consume the scan as it runs.
type RedisPublisher struct {
	client *redis.Client
	stream string
	runID  string
}

func NewRedisPublisher(client *redis.Client, stream, runID string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, runID: runID}
}

func (p *RedisPublisher) Stream() string {
	return p.stream
}

// PacketValues is the stream entry written for rec.
func PacketValues(runID string, rec ingest.Record) map[string]any {
	pkt := rec.Packet

	sizes := make([]string, len(pkt.FrameSizes))
	for i, s := range pkt.FrameSizes {
		sizes[i] = strconv.Itoa(s)
	}

	return map[string]any{
		"runID":           runID,
		"seq":             rec.Seq,
		"offset":          rec.Offset,
		"toc":             int(pkt.TOC),
		"config":          int(pkt.Config),
		"mode":            pkt.Mode.String(),
		"bandwidth":       pkt.Bandwidth.String(),
		"frameDurationUs": int64(pkt.FrameDuration / time.Microsecond),
		"stereo":          pkt.Stereo,
		"frameCountCode":  int(pkt.FrameCountCode),
		"frameCount":      pkt.FrameCount,
		"frameSizes":      strings.Join(sizes, ","),
		"totalSize":       pkt.TotalSize,
		"payloadOffset":   pkt.PayloadOffset,
		"selfDelimiting":  pkt.SelfDelimiting,
		"cbr":             pkt.CBR,
		"hasPadding":      pkt.HasPadding,
		"paddingSize":     pkt.PaddingSize,
	}
}

func (p *RedisPublisher) HandlePackets(ctx context.Context, records ...ingest.Record) error {
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				Values: PacketValues(p.runID, rec),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish %d packets to %s: %w", len(records), p.stream, err)
	}
	return nil
}

var _ ingest.Handler = (*RedisPublisher)(nil)
