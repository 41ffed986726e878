package opus

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means the buffer ends before a field the format requires.
	ErrInsufficientData = errors.New("opus: insufficient data")
	// ErrInvalidHeader means a header field holds a structurally impossible value.
	ErrInvalidHeader = errors.New("opus: invalid header")
	// ErrInvalidFrameSize means a frame is larger than MaxFrameSize or its size
	// cannot be derived from the bytes available.
	ErrInvalidFrameSize = errors.New("opus: invalid frame size")
	// ErrNoPacketFound is returned by Scanner.Next when no position between the
	// cursor and the end of the buffer decodes as a packet.
	ErrNoPacketFound = errors.New("opus: no packet found")
)

// DecodeError describes where and why a packet failed to decode.
// Err is always one of the package's sentinel errors.
type DecodeError struct {
	Err    error
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var _ error = (*DecodeError)(nil)

func decodeErr(sentinel error, offset int, format string, args ...any) error {
	return &DecodeError{
		Err:    sentinel,
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// shiftErr re-bases the offset of an error returned for a subslice of the packet.
func shiftErr(err error, base int) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return &DecodeError{Err: de.Err, Offset: de.Offset + base, Reason: de.Reason}
	}
	return err
}
