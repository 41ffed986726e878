// Package opus decodes the packet framing layer of the Opus bitstream
// (RFC 6716 section 3) without touching the SILK or CELT payloads.
//
// A packet starts with a TOC byte carrying the configuration number, the
// stereo flag and a frame count code. The code selects one of four layouts:
// one frame, two equal frames, two frames with an explicit first length, or
// up to 48 frames with optional padding in either CBR or VBR form.
//
// Decoder works on a single buffer. When the buffer may run past the end of
// the packet, as in an unframed elementary stream, it guesses self-delimited
// lengths and searches for the boundary of CBR code 3 packets. Scanner walks
// such a stream, skipping bytes that do not decode. Nothing in this package
// performs I/O or keeps state between calls.
package opus
