package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/glizzus/opusscan/internal/ingest"
	"github.com/glizzus/opusscan/internal/opus"
	"github.com/google/go-cmp/cmp"
)

// selfDelimitedStream concatenates n code 0 packets of 7 bytes each:
// TOC 0xF8, a frame length of 5 and five payload bytes.
func selfDelimitedStream(n int) []byte {
	var out []byte
	for range n {
		out = append(out, 0xF8, 5)
		out = append(out, bytes.Repeat([]byte{0x55}, 5)...)
	}
	return out
}

type collector struct {
	records []ingest.Record
}

func (c *collector) HandlePackets(_ context.Context, records ...ingest.Record) error {
	c.records = append(c.records, records...)
	return nil
}

func (c *collector) offsets() []int64 {
	var out []int64
	for _, r := range c.records {
		out = append(out, r.Offset)
	}
	return out
}

func TestRawReader(t *testing.T) {
	// A leading 0x03 followed by 0xF8 declares 56 frames and cannot decode.
	// The stream is longer than MinBufferSize so packets straddle refills.
	const packets = 30000
	data := append([]byte{0x03}, selfDelimitedStream(packets)...)

	var want []int64
	for i := range packets {
		want = append(want, 1+int64(i)*7)
	}

	tests := []struct {
		name       string
		bufferSize int
		oneByte    bool
	}{
		{name: "default buffer", bufferSize: 0},
		{name: "minimum buffer", bufferSize: ingest.MinBufferSize},
		{name: "minimum buffer with one byte reads", bufferSize: ingest.MinBufferSize, oneByte: true},
		{name: "buffer below minimum", bufferSize: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src io.Reader = bytes.NewReader(data)
			if tt.oneByte {
				src = iotest.OneByteReader(src)
			}
			r := ingest.NewRawReader(src, ingest.RawOptions{BufferSize: tt.bufferSize})

			var c collector
			sum, err := r.Run(t.Context(), &c)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if diff := cmp.Diff(want, c.offsets()); diff != "" {
				t.Errorf("packet offsets mismatch (-want +got):\n%s", diff)
			}
			for i, rec := range c.records {
				if rec.Seq != i+1 {
					t.Fatalf("record %d has Seq %d", i, rec.Seq)
				}
			}

			wantSum := ingest.Summary{Bytes: int64(len(data)), Packets: packets, SkippedBytes: 1}
			if diff := cmp.Diff(wantSum, sum); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRawReaderCBRTail(t *testing.T) {
	var data []byte
	for range 100 {
		data = append(data, 0x0B, 0x02)
		data = append(data, bytes.Repeat([]byte{0x55}, 40)...)
	}

	tests := []struct {
		name        string
		decoder     opus.Decoder
		wantPackets int
		lastSize    int
	}{
		// The last 2552 bytes or less fit one packet's plausible range and
		// are taken whole.
		{name: "default heuristic", decoder: opus.Decoder{}, wantPackets: 41, lastSize: 60 * 42},
		{name: "verified boundaries", decoder: opus.Decoder{VerifyBoundary: true}, wantPackets: 100, lastSize: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ingest.NewRawReader(bytes.NewReader(data), ingest.RawOptions{
				Scanner: opus.Scanner{Decoder: tt.decoder},
			})
			var c collector
			if _, err := r.Run(t.Context(), &c); err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if len(c.records) != tt.wantPackets {
				t.Fatalf("found %d packets, want %d", len(c.records), tt.wantPackets)
			}
			if got := c.records[len(c.records)-1].Packet.TotalSize; got != tt.lastSize {
				t.Errorf("last packet size = %d, want %d", got, tt.lastSize)
			}
		})
	}
}

func TestRawReaderVerifyBoundary(t *testing.T) {
	var data []byte
	for range 150 {
		data = append(data, 0x0B, 0x02)
		data = append(data, bytes.Repeat([]byte{0x55}, 40)...)
	}
	data[31], data[32] = 0x0B, 0x02

	r := ingest.NewRawReader(bytes.NewReader(data), ingest.RawOptions{
		Scanner: opus.Scanner{Decoder: opus.Decoder{VerifyBoundary: true}},
	})
	var c collector
	if _, err := r.Run(t.Context(), &c); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(c.records) < 2 {
		t.Fatalf("found %d packets, want at least 2", len(c.records))
	}
	if c.records[0].Offset != 0 || c.records[0].Packet.TotalSize != 42 {
		t.Errorf("first packet at %d with size %d, want offset 0 size 42",
			c.records[0].Offset, c.records[0].Packet.TotalSize)
	}
	if c.records[1].Offset != 42 {
		t.Errorf("second packet at %d, want 42", c.records[1].Offset)
	}
}

func TestRawReaderLeadingGarbage(t *testing.T) {
	// 0xFF 0xFF declares 63 frames, so no position in the run decodes and
	// sweeps keep only a short tail of it.
	const (
		garbage = 300000
		packets = 20000
	)
	data := append(bytes.Repeat([]byte{0xFF}, garbage), selfDelimitedStream(packets)...)

	tests := []struct {
		name    string
		oneByte bool
	}{
		{name: "full reads"},
		{name: "one byte reads", oneByte: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src io.Reader = bytes.NewReader(data)
			if tt.oneByte {
				src = iotest.OneByteReader(src)
			}
			r := ingest.NewRawReader(src, ingest.RawOptions{
				BufferSize: ingest.MinBufferSize,
				KeepTail:   100,
			})

			var c collector
			sum, err := r.Run(t.Context(), &c)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if len(c.records) != packets {
				t.Fatalf("found %d packets, want %d", len(c.records), packets)
			}
			if got := c.records[0].Offset; got != garbage {
				t.Errorf("first packet at %d, want %d", got, garbage)
			}

			wantSum := ingest.Summary{Bytes: int64(len(data)), Packets: packets, SkippedBytes: garbage}
			if diff := cmp.Diff(wantSum, sum); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRawReaderPaddedCBR(t *testing.T) {
	// 48 frames of the largest size with 4000 bytes of padding. The packet
	// fits the bytes a sweep keeps ahead of the cursor, but the padding of the
	// packet after it does not, so each second packet waits for a refill.
	// 0x70 sets CBR, padding and a count of 48. 15 bytes of 255 and a final
	// 190 encode the padding length.
	var packet []byte
	packet = append(packet, 0x0B, 0x70)
	packet = append(packet, bytes.Repeat([]byte{0xFF}, 15)...)
	packet = append(packet, 190)
	packet = append(packet, bytes.Repeat([]byte{0x55}, 48*opus.MaxFrameSize)...)
	packet = append(packet, make([]byte, 4000)...)

	const packets = 5
	data := bytes.Repeat(packet, packets)

	r := ingest.NewRawReader(bytes.NewReader(data), ingest.RawOptions{
		BufferSize: ingest.MinBufferSize,
		Scanner:    opus.Scanner{Decoder: opus.Decoder{VerifyBoundary: true}},
	})
	var c collector
	if _, err := r.Run(t.Context(), &c); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var want []int64
	for i := range packets {
		want = append(want, int64(i*len(packet)))
	}
	if diff := cmp.Diff(want, c.offsets()); diff != "" {
		t.Errorf("packet offsets mismatch (-want +got):\n%s", diff)
	}
	for _, rec := range c.records {
		if rec.Packet.TotalSize != len(packet) || rec.Packet.PaddingSize != 4000 {
			t.Errorf("packet at %d has size %d and padding %d, want %d and 4000",
				rec.Offset, rec.Packet.TotalSize, rec.Packet.PaddingSize, len(packet))
		}
	}
}

func TestRawReaderHandlerError(t *testing.T) {
	errSink := errors.New("sink unavailable")
	r := ingest.NewRawReader(bytes.NewReader(selfDelimitedStream(3)), ingest.RawOptions{})
	_, err := r.Run(t.Context(), ingest.HandlerFunc(func(context.Context, ...ingest.Record) error {
		return errSink
	}))
	if !errors.Is(err, errSink) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestRawReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := ingest.NewRawReader(bytes.NewReader(selfDelimitedStream(3)), ingest.RawOptions{})
	var c collector
	if _, err := r.Run(ctx, &c); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(c.records) != 0 {
		t.Errorf("handled %d packets after cancellation", len(c.records))
	}
}
