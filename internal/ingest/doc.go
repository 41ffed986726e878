// Package ingest feeds inputs to the opus packet decoder and hands the
// packets it finds to a Handler.
//
// Three layouts are supported: raw elementary streams with no framing, where
// packet boundaries are recovered by opus.Scanner; streams of packets
// prefixed with a uint16 little-endian length; and Ogg Opus files. The last
// two carry exact packet lengths, so their packets are decoded in exact mode.
package ingest
