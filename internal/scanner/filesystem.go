package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct{}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively walks base/item. Symlinks are reported, never followed.
func (s *FileSystemScanner) Scan(ctx context.Context, base, item string) ([]Entry, error) {
	var entries []Entry

	root := filepath.Join(base, item)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		entry := Entry{
			Name: filepath.ToSlash(rel),
			Path: path,
			Info: info,
		}

		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry.Link = link
		}

		entries = append(entries, entry)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	logrus.Debugf("Scanned %d entries under %s", len(entries), root)
	return entries, nil
}
