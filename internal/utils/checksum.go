package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Checksum is the digest and size of a file
type Checksum struct {
	SHA256 string
	Size   int64
}

// CalculateChecksums hashes the file at path
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return CalculateReaderChecksums(f)
}

// CalculateReaderChecksums streams r through SHA-256
func CalculateReaderChecksums(r io.Reader) (*Checksum, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return nil, err
	}

	return &Checksum{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}

// SRIHash converts a hex SHA-256 digest to the "sha256-<base64>" form
// used by Nix fetchers
func SRIHash(hexSum string) (string, error) {
	raw, err := hex.DecodeString(hexSum)
	if err != nil {
		return "", fmt.Errorf("invalid hex digest: %w", err)
	}
	if len(raw) != sha256.Size {
		return "", fmt.Errorf("digest has %d bytes, expected %d", len(raw), sha256.Size)
	}
	return "sha256-" + base64.StdEncoding.EncodeToString(raw), nil
}

// ParseHash normalizes a SHA-256 given as hex or in SRI form to lowercase hex
func ParseHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty hash")
	}

	if rest, ok := strings.CutPrefix(s, "sha256-"); ok {
		raw, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return "", fmt.Errorf("invalid SRI hash: %w", err)
		}
		if len(raw) != sha256.Size {
			return "", fmt.Errorf("SRI hash has %d bytes, expected %d", len(raw), sha256.Size)
		}
		return hex.EncodeToString(raw), nil
	}

	s = strings.TrimPrefix(s, "sha256:")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid hex hash: %w", err)
	}
	if len(raw) != sha256.Size {
		return "", fmt.Errorf("hash has %d bytes, expected %d", len(raw), sha256.Size)
	}
	return strings.ToLower(s), nil
}
