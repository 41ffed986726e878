package opus

// MinFrameSize is the smallest CBR frame size the boundary search considers
// plausible. Real SILK frames are never shorter.
const MinFrameSize = 10

// resolveBoundary infers the total size of the CBR code 3 packet at the start
// of b, whose frame data begins at off. It returns 0 when the size cannot be
// inferred.
//
// A buffer whose length is plausible for count frames is taken to be exactly
// the packet. A longer buffer is searched for the next occurrence of the same
// TOC and frame count bytes, which usually start the following packet of the
// stream. Coincidental repetitions inside the payload defeat the search.
//
// With VerifyBoundary set, candidates must also pass plausibleBoundary, and a
// buffer of plausible length is searched before it is taken whole. The tail
// of a CBR stream is then split into its packets instead of being read as one.
func (d Decoder) resolveBoundary(b []byte, off, count, padding int) int {
	lo := off + count*MinFrameSize + padding
	hi := off + count*MaxFrameSize + padding
	n := len(b)
	switch {
	case n < lo:
		return 0
	case n <= hi:
		if d.VerifyBoundary {
			if size := d.searchBoundary(b, lo, hi, off, count, padding); size != 0 {
				return size
			}
		}
		return n
	}
	return d.searchBoundary(b, lo, hi, off, count, padding)
}

// searchBoundary returns the first size in [lo, hi] at which b repeats its
// TOC and frame count bytes, or 0.
func (d Decoder) searchBoundary(b []byte, lo, hi, off, count, padding int) int {
	toc, fc := b[0], b[1]
	for size := lo; size <= hi && size+1 < len(b); size++ {
		if b[size] != toc || b[size+1] != fc {
			continue
		}
		if d.VerifyBoundary && !plausibleBoundary(b, size, off, count, padding) {
			continue
		}
		return size
	}
	return 0
}

// plausibleBoundary reports whether a packet ending at size splits into count
// equal frames and is followed by bytes that decode as a packet.
func plausibleBoundary(b []byte, size, off, count, padding int) bool {
	data := size - off - padding
	if data%count != 0 || data/count > MaxFrameSize {
		return false
	}
	_, err := Decoder{}.Decode(b[size:])
	return err == nil
}
