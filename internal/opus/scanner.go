package opus

// DefaultMaxProbe bounds the search for the next packet after one whose
// extent could not be resolved.
const DefaultMaxProbe = 1000

// Match is one packet found by a Scanner.
type Match struct {
	Packet Packet
	// Offset is the position of the packet's TOC byte in the scanned buffer.
	Offset int
	// Next is where the following scan should start.
	Next int
}

// Skipped is the number of bytes between cursor and the packet that could
// not be decoded.
func (m Match) Skipped(cursor int) int {
	return m.Offset - cursor
}

// Scanner finds packets in an unframed byte stream. It holds no cursor of its
// own; callers pass the cursor in and carry Match.Next forward.
type Scanner struct {
	Decoder  Decoder
	MaxProbe int
}

// NewScanner returns a Scanner using d and the default probe limit.
func NewScanner(d Decoder) Scanner {
	return Scanner{Decoder: d, MaxProbe: DefaultMaxProbe}
}

// Next decodes the first packet at or after cursor, skipping one byte after
// every failed attempt. It returns ErrNoPacketFound with Match.Next set to
// len(b) when the end of b is reached first.
func (s Scanner) Next(b []byte, cursor int) (Match, error) {
	if cursor < 0 {
		cursor = 0
	}
	for off := cursor; off < len(b); off++ {
		p, err := s.Decoder.Decode(b[off:])
		if err != nil {
			continue
		}
		m := Match{Packet: p, Offset: off}
		if p.Resolved() {
			m.Next = off + p.TotalSize
		} else {
			m.Next = s.resync(b, off, p)
		}
		return m, nil
	}
	return Match{Offset: len(b), Next: len(b)}, ErrNoPacketFound
}

// resync guesses where the packet after an unresolved one starts. It probes
// forward from the estimated end of p for a position that decodes, and falls
// back to the byte after p's TOC.
func (s Scanner) resync(b []byte, off int, p Packet) int {
	est := off + p.PayloadOffset
	if len(p.FrameSizes) > 0 {
		est += p.FrameSizes[0] * p.FrameCount
	}
	limit := s.MaxProbe
	if limit <= 0 {
		limit = DefaultMaxProbe
	}
	for i, pos := 0, est; i < limit && pos < len(b); i, pos = i+1, pos+1 {
		if _, err := s.Decoder.Decode(b[pos:]); err == nil {
			return pos
		}
	}
	return off + 1
}
