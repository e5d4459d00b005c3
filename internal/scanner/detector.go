package scanner

import (
	"bytes"
	"os"
	"strings"
)

// Magic bytes for format detection
var (
	gzipMagic = []byte{0x1F, 0x8B}

	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

	xzMagic = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}

	// POSIX tar headers carry "ustar" at offset 257
	tarMagic       = []byte("ustar")
	tarMagicOffset = 257
)

// DetectFormat determines the archive format based on magic bytes and file extension
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return FormatUnknown, err
	}

	return DetectFormatBytes(header[:n], path), nil
}

// DetectFormatBytes determines the archive format of a file header. The
// name is only consulted when the magic bytes are inconclusive.
func DetectFormatBytes(header []byte, name string) Format {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(header, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(header, xzMagic):
		return FormatXz
	case len(header) >= tarMagicOffset+len(tarMagic) &&
		bytes.Equal(header[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return FormatTar
	}

	return FormatFromName(name)
}

// FormatFromName maps an archive file name to a format by extension
func FormatFromName(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatGzip
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatZstd
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatXz
	case strings.HasSuffix(name, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// ParseFormat maps a compression config value to a format
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gzip", "gz":
		return FormatGzip, true
	case "zstd", "zst":
		return FormatZstd, true
	case "xz":
		return FormatXz, true
	case "none", "tar":
		return FormatTar, true
	default:
		return FormatUnknown, false
	}
}
