package scanner

import (
	"context"
	"os"
)

// Format represents the container format of an archive file
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatGzip
	FormatZstd
	FormatXz
)

// String returns the string representation of Format
func (f Format) String() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatXz:
		return "xz"
	default:
		return "unknown"
	}
}

// Extension returns the archive file extension used for the format
func (f Format) Extension() string {
	switch f {
	case FormatGzip:
		return ".tar.gz"
	case FormatZstd:
		return ".tar.zst"
	case FormatXz:
		return ".tar.xz"
	default:
		return ".tar"
	}
}

// Entry represents a filesystem object found during scanning
type Entry struct {
	// Name is slash separated and relative to the scan base
	Name string
	Path string
	Info os.FileInfo
	// Link holds the symlink target for symlinks
	Link string
}

// Scanner interface for walking archive targets
type Scanner interface {
	// Scan walks base/item without following symlinks
	Scan(ctx context.Context, base, item string) ([]Entry, error)
}
