package opus

const (
	// MaxFrameSize is the largest frame, in bytes, a packet may carry.
	MaxFrameSize = 1275
	// MaxFrames is the largest frame count a code 3 packet may declare.
	MaxFrames = 48
)

// ParseFrameLength decodes the one or two byte frame length code at the
// start of b. It returns the frame size and the number of bytes consumed.
func ParseFrameLength(b []byte) (size, n int, err error) {
	if len(b) < 1 {
		return 0, 0, decodeErr(ErrInsufficientData, 0, "missing frame length")
	}
	b0 := int(b[0])
	if b0 < 252 {
		return b0, 1, nil
	}
	if len(b) < 2 {
		return 0, 0, decodeErr(ErrInsufficientData, 1, "frame length %d needs a second byte", b0)
	}
	return int(b[1])*4 + b0, 2, nil
}

// AppendFrameLength appends the frame length code for size to dst.
func AppendFrameLength(dst []byte, size int) ([]byte, error) {
	if size < 0 || size > MaxFrameSize {
		return dst, decodeErr(ErrInvalidFrameSize, 0, "frame size %d out of range", size)
	}
	if size < 252 {
		return append(dst, byte(size)), nil
	}
	b0 := 252 + size&0x03
	return append(dst, byte(b0), byte((size-b0)/4)), nil
}

// ParsePaddingLength decodes the padding length run at the start of b. Each
// 255 byte adds 254 and continues the run; the first byte below 255 adds its
// own value and ends it.
func ParsePaddingLength(b []byte) (size, n int, err error) {
	for n < len(b) {
		v := int(b[n])
		n++
		if v < 255 {
			return size + v, n, nil
		}
		size += 254
	}
	return 0, 0, decodeErr(ErrInsufficientData, n, "unterminated padding length")
}

// AppendPaddingLength appends the padding length code for size to dst.
func AppendPaddingLength(dst []byte, size int) []byte {
	for size >= 255 {
		dst = append(dst, 255)
		size -= 254
	}
	return append(dst, byte(size))
}
