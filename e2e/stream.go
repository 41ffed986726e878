package e2e

import "bytes"

// StreamPacket is one packet of a synthetic stream and where it starts.
type StreamPacket struct {
	Offset int64
	Size   int
}

// SyntheticStream builds a raw elementary stream of selfDelimited code 0
// packets (TOC 0xF8, five byte frame) followed by cbr code 3 packets
// (TOC 0x0B, two frames of twenty bytes). It returns the stream and the
// packets a scan of it should find.
func SyntheticStream(selfDelimited, cbr int) ([]byte, []StreamPacket) {
	var (
		data    []byte
		packets []StreamPacket
	)
	for range selfDelimited {
		packets = append(packets, StreamPacket{Offset: int64(len(data)), Size: 7})
		data = append(data, 0xF8, 0x05)
		data = append(data, bytes.Repeat([]byte{0x55}, 5)...)
	}
	for range cbr {
		packets = append(packets, StreamPacket{Offset: int64(len(data)), Size: 42})
		data = append(data, 0x0B, 0x02)
		data = append(data, bytes.Repeat([]byte{0x55}, 40)...)
	}
	return data, packets
}
