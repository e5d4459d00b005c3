package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// ExtractOptions controls Extract
type ExtractOptions struct {
	// Overwrite replaces existing files and symlinks instead of failing
	Overwrite bool
}

type dirTimes struct {
	path    string
	mode    os.FileMode
	modTime time.Time
}

// Extract unpacks a tar archive, optionally compressed with gzip, zstd or
// xz, into dest. It returns the slash separated names it wrote.
func Extract(ctx context.Context, archivePath, dest string, opts ExtractOptions) ([]string, error) {
	format, err := scanner.DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}
	if format == scanner.FormatUnknown {
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := utils.NewDecompressor(format, f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := utils.EnsureDir(dest); err != nil {
		return nil, err
	}

	tr := tar.NewReader(r)
	var written []string
	var dirs []dirTimes

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}

		name, err := sanitizeName(hdr.Name)
		if err != nil {
			return written, err
		}
		if name == "." {
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(name))
		if err := checkParents(dest, target); err != nil {
			return written, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0700); err != nil {
				return written, err
			}
			dirs = append(dirs, dirTimes{path: target, mode: hdr.FileInfo().Mode().Perm(), modTime: hdr.ModTime})

		case tar.TypeReg:
			if err := prepareTarget(target, opts.Overwrite); err != nil {
				return written, err
			}
			if err := writeFile(target, tr, hdr); err != nil {
				return written, err
			}

		case tar.TypeSymlink:
			if err := prepareTarget(target, opts.Overwrite); err != nil {
				return written, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return written, err
			}

		case tar.TypeLink:
			linkName, err := sanitizeName(hdr.Linkname)
			if err != nil {
				return written, err
			}
			if err := prepareTarget(target, opts.Overwrite); err != nil {
				return written, err
			}
			if err := os.Link(filepath.Join(dest, filepath.FromSlash(linkName)), target); err != nil {
				return written, err
			}

		default:
			logrus.Debugf("Skipping unsupported tar entry %s (type %c)", hdr.Name, hdr.Typeflag)
			continue
		}

		written = append(written, name)
	}

	// Directory modes and times are applied last so that restrictive
	// modes do not block writing their children
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chmod(d.path, d.mode); err != nil {
			return written, err
		}
		if err := os.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return written, err
		}
	}

	return written, nil
}

// sanitizeName cleans an entry name and rejects names escaping the
// extraction root
func sanitizeName(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("refusing absolute entry name %q", name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("refusing entry name %q outside the destination", name)
	}
	return clean, nil
}

// checkParents rejects targets whose parent directories below dest are
// symlinks, so that a crafted archive cannot write through a link
func checkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}

	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("refusing to extract %s through symlink %s", target, cur)
		}
	}
	return nil
}

func prepareTarget(target string, overwrite bool) error {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(filepath.Dir(target), 0755)
	}
	if err != nil {
		return err
	}
	if !overwrite {
		return fmt.Errorf("%s: %w", target, fs.ErrExist)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: cannot replace a directory with a file", target)
	}
	return os.Remove(target)
}

func writeFile(target string, r io.Reader, hdr *tar.Header) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, hdr.FileInfo().Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(target, hdr.FileInfo().Mode().Perm()); err != nil {
		return err
	}

	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}
