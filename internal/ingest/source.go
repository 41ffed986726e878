package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/glizzus/opusscan/internal/opus"
)

// Format names an input layout.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatRaw    Format = "raw"
	FormatFramed Format = "framed"
	FormatOgg    Format = "ogg"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatRaw, FormatFramed, FormatOgg:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

var oggMagic = []byte("OggS")

// DetectFormat peeks at the start of r. Ogg input is recognised by its page
// capture pattern; anything else is treated as a raw stream, since a
// length-prefixed stream cannot be told apart from raw bytes.
func DetectFormat(r *bufio.Reader) (Format, error) {
	head, err := r.Peek(len(oggMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if bytes.Equal(head, oggMagic) {
		return FormatOgg, nil
	}
	return FormatRaw, nil
}

// BlobSource fetches objects from remote storage.
type BlobSource interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

const objectPrefix = "s3://"

// Open opens a local file, or an object in blobs when name starts with
// "s3://". blobs may be nil when only local files are expected.
func Open(ctx context.Context, name string, blobs BlobSource) (io.ReadCloser, error) {
	if key, ok := strings.CutPrefix(name, objectPrefix); ok {
		if blobs == nil {
			return nil, fmt.Errorf("no object storage configured for %s", name)
		}
		rc, err := blobs.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get object %s: %w", key, err)
		}
		return rc, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Options configures Read.
type Options struct {
	Format     Format
	BufferSize int
	KeepTail   int
	Scanner    opus.Scanner
	Logger     *slog.Logger
}

// Read finds every packet in src using the reader for opts.Format and hands
// them to h.
func Read(ctx context.Context, src io.Reader, h Handler, opts Options) (Summary, Format, error) {
	br := bufio.NewReader(src)
	format := opts.Format
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(br)
		if err != nil {
			return Summary{}, "", fmt.Errorf("failed to detect input format: %w", err)
		}
		format = detected
	}

	var (
		sum Summary
		err error
	)
	switch format {
	case FormatRaw:
		sum, err = NewRawReader(br, RawOptions{
			BufferSize: opts.BufferSize,
			KeepTail:   opts.KeepTail,
			Scanner:    opts.Scanner,
			Logger:     opts.Logger,
		}).Run(ctx, h)
	case FormatFramed:
		sum, err = NewFramedReader(br, opts.Logger).Run(ctx, h)
	case FormatOgg:
		sum, err = NewOggReader(br, opts.Logger).Run(ctx, h)
	default:
		return Summary{}, format, fmt.Errorf("unknown input format %q", format)
	}
	return sum, format, err
}
