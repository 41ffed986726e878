package opus

import "time"

// Packet describes the framing of one decoded packet. It is built once every
// field is known and is never modified afterwards.
type Packet struct {
	TOC            byte
	Config         uint8
	Mode           Mode
	Bandwidth      Bandwidth
	FrameDuration  time.Duration
	Stereo         bool
	FrameCountCode uint8

	FrameCount int
	// FrameSizes has one entry per frame. It is nil when the packet is
	// unresolved.
	FrameSizes []int
	// TotalSize is the number of bytes the packet occupies, or 0 when a CBR
	// code 3 packet's extent could not be inferred.
	TotalSize int
	// PayloadOffset is where frame data starts, relative to the TOC byte.
	PayloadOffset  int
	SelfDelimiting bool

	// Code 3 only.
	CBR         bool
	HasPadding  bool
	PaddingSize int
}

// Resolved reports whether the packet's extent is known.
func (p Packet) Resolved() bool {
	return p.TotalSize != 0
}

// Duration is the audio duration covered by all frames of the packet.
func (p Packet) Duration() time.Duration {
	return time.Duration(p.FrameCount) * p.FrameDuration
}

// Frames returns the frame payloads of p as subslices of b, which must be the
// buffer p was decoded from, starting at the TOC byte.
func (p Packet) Frames(b []byte) ([][]byte, error) {
	if !p.Resolved() {
		return nil, decodeErr(ErrInsufficientData, p.PayloadOffset, "packet extent is unresolved")
	}
	if len(b) < p.TotalSize {
		return nil, decodeErr(ErrInsufficientData, len(b), "buffer holds %d of %d packet bytes", len(b), p.TotalSize)
	}
	frames := make([][]byte, len(p.FrameSizes))
	off := p.PayloadOffset
	for i, size := range p.FrameSizes {
		frames[i] = b[off : off+size : off+size]
		off += size
	}
	return frames, nil
}

// Decoder decodes packet framing. The zero value decodes packets found in an
// unframed stream, where the buffer may extend past the end of the packet.
type Decoder struct {
	// Exact declares that every buffer handed to Decode is exactly one packet,
	// as delivered by a container. Frame lengths are then taken from the
	// buffer length instead of being guessed.
	Exact bool
	// VerifyBoundary makes the CBR boundary search accept a candidate only when
	// the bytes at that position decode as a packet of their own.
	VerifyBoundary bool
}

// DecodePacket decodes the packet at the start of b with the zero Decoder.
func DecodePacket(b []byte) (Packet, error) {
	return Decoder{}.Decode(b)
}

// layout carries the framing fields worked out by one of the frame count
// code branches.
type layout struct {
	sizes          []int
	count          int
	offset         int
	total          int
	selfDelimiting bool
	cbr            bool
	padded         bool
	padding        int
}

func newPacket(toc byte, h TOC, cfg ConfigEntry, l layout) Packet {
	count := l.count
	if count == 0 {
		count = len(l.sizes)
	}
	return Packet{
		TOC:            toc,
		Config:         h.Config,
		Mode:           cfg.Mode,
		Bandwidth:      cfg.Bandwidth,
		FrameDuration:  cfg.FrameDuration,
		Stereo:         h.Stereo,
		FrameCountCode: h.FrameCountCode,
		FrameCount:     count,
		FrameSizes:     l.sizes,
		TotalSize:      l.total,
		PayloadOffset:  l.offset,
		SelfDelimiting: l.selfDelimiting,
		CBR:            l.cbr,
		HasPadding:     l.padded,
		PaddingSize:    l.padding,
	}
}

// Decode decodes the packet whose TOC byte is b[0]. On error the returned
// Packet is the zero value.
func (d Decoder) Decode(b []byte) (Packet, error) {
	if len(b) < 1 {
		return Packet{}, decodeErr(ErrInsufficientData, 0, "missing TOC byte")
	}
	h := ParseTOC(b[0])
	cfg, ok := LookupConfig(h.Config)
	if !ok {
		return Packet{}, decodeErr(ErrInvalidHeader, 0, "config %d out of range", h.Config)
	}

	var (
		l   layout
		err error
	)
	switch h.FrameCountCode {
	case 0:
		l, err = d.oneFrame(b)
	case 1:
		l, err = d.twoEqualFrames(b)
	case 2:
		l, err = d.twoFrames(b)
	default:
		l, err = d.arbitraryFrames(b)
	}
	if err != nil {
		return Packet{}, err
	}
	return newPacket(b[0], h, cfg, l), nil
}

func (d Decoder) oneFrame(b []byte) (layout, error) {
	rest := len(b) - 1
	if rest == 0 {
		return layout{sizes: []int{0}, offset: 1, total: 1}, nil
	}
	if !d.Exact {
		size, n, err := ParseFrameLength(b[1:])
		if err == nil && size > 0 && n+size <= rest {
			return layout{
				sizes:          []int{size},
				offset:         1 + n,
				total:          1 + n + size,
				selfDelimiting: true,
			}, nil
		}
	}
	if rest > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, 1, "frame of %d bytes exceeds %d", rest, MaxFrameSize)
	}
	return layout{sizes: []int{rest}, offset: 1, total: len(b)}, nil
}

func (d Decoder) twoEqualFrames(b []byte) (layout, error) {
	rest := len(b) - 1
	if rest == 0 {
		return layout{}, decodeErr(ErrInsufficientData, 1, "two-frame packet has no payload")
	}
	if !d.Exact {
		size, n, err := ParseFrameLength(b[1:])
		if err == nil && size > 0 && n+2*size <= rest {
			return layout{
				sizes:          []int{size, size},
				offset:         1 + n,
				total:          1 + n + 2*size,
				selfDelimiting: true,
			}, nil
		}
	}
	if rest%2 != 0 {
		return layout{}, decodeErr(ErrInvalidFrameSize, 1, "odd payload of %d bytes cannot hold two equal frames", rest)
	}
	size := rest / 2
	if size > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, 1, "frame of %d bytes exceeds %d", size, MaxFrameSize)
	}
	return layout{sizes: []int{size, size}, offset: 1, total: len(b)}, nil
}

func (d Decoder) twoFrames(b []byte) (layout, error) {
	size1, n1, err := ParseFrameLength(b[1:])
	if err != nil {
		return layout{}, shiftErr(err, 1)
	}
	off := 1 + n1
	if !d.Exact && off < len(b) {
		size2, n2, err := ParseFrameLength(b[off:])
		if err == nil && size1 > 0 && size2 > 0 && off+n2+size1+size2 <= len(b) {
			return layout{
				sizes:          []int{size1, size2},
				offset:         off + n2,
				total:          off + n2 + size1 + size2,
				selfDelimiting: true,
			}, nil
		}
	}
	if size1 > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, 1, "first frame of %d bytes exceeds %d", size1, MaxFrameSize)
	}
	if off+size1 > len(b) {
		return layout{}, decodeErr(ErrInsufficientData, off, "first frame of %d bytes overruns %d remaining", size1, len(b)-off)
	}
	size2 := len(b) - off - size1
	if size2 > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, off+size1, "second frame of %d bytes exceeds %d", size2, MaxFrameSize)
	}
	return layout{sizes: []int{size1, size2}, offset: off, total: len(b)}, nil
}

func (d Decoder) arbitraryFrames(b []byte) (layout, error) {
	if len(b) < 2 {
		return layout{}, decodeErr(ErrInsufficientData, 1, "missing frame count byte")
	}
	fc := b[1]
	vbr := fc&0x80 != 0
	padded := fc&0x40 != 0
	count := int(fc & 0x3F)
	if count == 0 {
		return layout{}, decodeErr(ErrInvalidHeader, 1, "frame count is zero")
	}
	if count > MaxFrames {
		return layout{}, decodeErr(ErrInvalidHeader, 1, "frame count %d exceeds %d", count, MaxFrames)
	}

	off := 2
	// end is the end of frame data, before any trailing padding.
	end := len(b)
	padding := 0
	if padded {
		size, n, err := ParsePaddingLength(b[off:])
		if err != nil {
			return layout{}, shiftErr(err, off)
		}
		off += n
		if size > end-off {
			return layout{}, decodeErr(ErrInsufficientData, off, "padding of %d bytes overruns %d remaining", size, end-off)
		}
		end -= size
		padding = size
	}

	if vbr {
		return vbrFrames(b, off, end, count, padded, padding)
	}

	total := len(b)
	if !d.Exact {
		total = d.resolveBoundary(b, off, count, padding)
	}
	if total == 0 {
		return layout{
			count:   count,
			offset:  off,
			cbr:     true,
			padded:  padded,
			padding: padding,
		}, nil
	}
	data := total - off - padding
	if data%count != 0 {
		return layout{}, decodeErr(ErrInvalidFrameSize, off, "%d data bytes do not split into %d equal frames", data, count)
	}
	size := data / count
	if size > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, off, "frame of %d bytes exceeds %d", size, MaxFrameSize)
	}
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = size
	}
	return layout{
		sizes:   sizes,
		offset:  off,
		total:   total,
		cbr:     true,
		padded:  padded,
		padding: padding,
	}, nil
}

// vbrFrames reads the count-1 explicit frame lengths that follow the code 3
// header. The last frame takes whatever data remains before the padding.
func vbrFrames(b []byte, off, end, count int, padded bool, padding int) (layout, error) {
	sizes := make([]int, 0, count)
	sum := 0
	for i := 0; i < count-1; i++ {
		size, n, err := ParseFrameLength(b[off:end])
		if err != nil {
			return layout{}, shiftErr(err, off)
		}
		off += n
		if size > end-off-sum {
			return layout{}, decodeErr(ErrInvalidFrameSize, off-n, "frame %d of %d bytes overruns %d remaining", i, size, end-off-sum)
		}
		sizes = append(sizes, size)
		sum += size
	}
	last := end - off - sum
	if last < 0 {
		return layout{}, decodeErr(ErrInvalidFrameSize, off, "frame lengths overrun the packet by %d bytes", -last)
	}
	if last > MaxFrameSize {
		return layout{}, decodeErr(ErrInvalidFrameSize, off+sum, "last frame of %d bytes exceeds %d", last, MaxFrameSize)
	}
	sizes = append(sizes, last)
	return layout{
		sizes:   sizes,
		offset:  off,
		total:   len(b),
		padded:  padded,
		padding: padding,
	}, nil
}
