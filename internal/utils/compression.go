package utils

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ulikunitz/xz"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// NewCompressor wraps w with the compressor for format. Closing the
// returned writer flushes the compressor but does not close w.
func NewCompressor(format scanner.Format, w io.Writer) (io.WriteCloser, error) {
	switch format {
	case scanner.FormatGzip:
		return gzip.NewWriter(w), nil
	case scanner.FormatZstd:
		return zstd.NewWriter(w)
	case scanner.FormatXz:
		return xz.NewWriter(w)
	case scanner.FormatTar:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", format)
	}
}

// NewDecompressor wraps r with the decompressor for format
func NewDecompressor(format scanner.Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case scanner.FormatGzip:
		return gzip.NewReader(r)
	case scanner.FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{zr}, nil
	case scanner.FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case scanner.FormatTar:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", format)
	}
}
