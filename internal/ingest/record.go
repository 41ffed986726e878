package ingest

import (
	"context"

	"github.com/glizzus/opusscan/internal/opus"
)

// Record is one packet found in an input, with its position.
type Record struct {
	// Seq numbers packets from 1 in the order they were found.
	Seq int
	// Offset is the position of the packet's TOC byte in the input. For Ogg
	// input it is the position within the concatenated demuxed packets.
	Offset int64
	Packet opus.Packet
}

// Handler receives the packets found by a reader, in batches.
type Handler interface {
	HandlePackets(ctx context.Context, records ...Record) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, records ...Record) error

func (f HandlerFunc) HandlePackets(ctx context.Context, records ...Record) error {
	return f(ctx, records...)
}

var _ Handler = HandlerFunc(nil)

// Summary totals one run over an input.
type Summary struct {
	// Bytes is the input consumed. For Ogg input it counts the demuxed
	// packet bytes, headers excluded, not the container bytes.
	Bytes        int64
	Packets      int
	Unresolved   int
	Invalid      int
	SkippedBytes int64
}

// record numbers p and counts it.
func (s *Summary) record(offset int64, p opus.Packet) Record {
	s.Packets++
	if !p.Resolved() {
		s.Unresolved++
	}
	return Record{Seq: s.Packets, Offset: offset, Packet: p}
}
