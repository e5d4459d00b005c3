package utils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// WriteFile writes data to a file, creating directories as needed
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, perm)
}

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether path exists, without following a final symlink
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Remove deletes path recursively. Symlinks are removed, never followed.
// When sudo is set and the removal fails on permissions, it is retried
// with "sudo rm -rf".
func Remove(ctx context.Context, runner Runner, path string, sudo bool) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}

	if !sudo || !errors.Is(err, fs.ErrPermission) || runner == nil {
		return err
	}

	logrus.Debugf("Permission denied removing %s, retrying with sudo", path)
	if _, err := runner.Run(ctx, true, "rm", "-rf", "--", path); err != nil {
		return fmt.Errorf("sudo removal of %s failed: %w", path, err)
	}
	return nil
}

// ExpandPath expands a leading ~ and environment variables in path
func ExpandPath(path string) (string, error) {
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return path, nil
}

// IsWithin reports whether path equals root or lies below it. Both paths
// must be absolute and clean.
func IsWithin(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
