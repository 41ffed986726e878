package opus_test

import (
	"errors"
	"testing"

	"github.com/glizzus/opusscan/internal/opus"
	"github.com/google/go-cmp/cmp"
)

func TestFrameLengthRoundTrip(t *testing.T) {
	for size := 0; size <= opus.MaxFrameSize; size++ {
		enc, err := opus.AppendFrameLength(nil, size)
		if err != nil {
			t.Fatalf("AppendFrameLength(%d) returned error: %v", size, err)
		}
		switch {
		case size <= 251:
			if len(enc) != 1 || int(enc[0]) != size {
				t.Fatalf("AppendFrameLength(%d) = %v, want single byte %d", size, enc, size)
			}
		default:
			if len(enc) != 2 {
				t.Fatalf("AppendFrameLength(%d) = %v, want two bytes", size, enc)
			}
		}

		got, n, err := opus.ParseFrameLength(enc)
		if err != nil {
			t.Fatalf("ParseFrameLength(%v) returned error: %v", enc, err)
		}
		if got != size || n != len(enc) {
			t.Fatalf("ParseFrameLength(%v) = (%d, %d), want (%d, %d)", enc, got, n, size, len(enc))
		}
	}
}

func TestAppendFrameLengthOutOfRange(t *testing.T) {
	for _, size := range []int{-1, opus.MaxFrameSize + 1} {
		if _, err := opus.AppendFrameLength(nil, size); !errors.Is(err, opus.ErrInvalidFrameSize) {
			t.Errorf("AppendFrameLength(%d) error = %v, want ErrInvalidFrameSize", size, err)
		}
	}
}

func TestParseFrameLength(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantSize int
		wantN    int
		wantErr  error
	}{
		{name: "dtx", data: []byte{0}, wantSize: 0, wantN: 1},
		{name: "one byte", data: []byte{251, 9}, wantSize: 251, wantN: 1},
		{name: "two bytes", data: []byte{252, 1}, wantSize: 256, wantN: 2},
		{name: "largest", data: []byte{255, 255}, wantSize: 1275, wantN: 2},
		{name: "empty", data: nil, wantErr: opus.ErrInsufficientData},
		{name: "missing second byte", data: []byte{253}, wantErr: opus.ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, n, err := opus.ParseFrameLength(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if size != tt.wantSize || n != tt.wantN {
				t.Errorf("ParseFrameLength(%v) = (%d, %d), want (%d, %d)", tt.data, size, n, tt.wantSize, tt.wantN)
			}
		})
	}
}

func TestPaddingLength(t *testing.T) {
	tests := []struct {
		size int
		want []byte
	}{
		{0, []byte{0}},
		{254, []byte{254}},
		{255, []byte{255, 1}},
		{508, []byte{255, 254}},
		{509, []byte{255, 255, 1}},
	}

	for _, tt := range tests {
		enc := opus.AppendPaddingLength(nil, tt.size)
		if diff := cmp.Diff(tt.want, enc); diff != "" {
			t.Errorf("AppendPaddingLength(%d) mismatch (-want +got):\n%s", tt.size, diff)
		}
		got, n, err := opus.ParsePaddingLength(append(enc, 0xAA))
		if err != nil {
			t.Fatalf("ParsePaddingLength(%v) returned error: %v", enc, err)
		}
		if got != tt.size || n != len(enc) {
			t.Errorf("ParsePaddingLength(%v) = (%d, %d), want (%d, %d)", enc, got, n, tt.size, len(enc))
		}
	}
}

func TestParsePaddingLengthUnterminated(t *testing.T) {
	for _, data := range [][]byte{nil, {0xFF}, {0xFF, 0xFF}} {
		if _, _, err := opus.ParsePaddingLength(data); !errors.Is(err, opus.ErrInsufficientData) {
			t.Errorf("ParsePaddingLength(%v) error = %v, want ErrInsufficientData", data, err)
		}
	}
}
