package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// writeArchive writes the items of group into a compressed tarball at
// path and returns the per item content listings
func writeArchive(ctx context.Context, sc scanner.Scanner, path string, format scanner.Format, group Group) (map[string][]string, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cw, err := utils.NewCompressor(format, f)
	if err != nil {
		return nil, err
	}

	tw := tar.NewWriter(cw)
	contents := make(map[string][]string, len(group.Items))

	for _, item := range group.Items {
		entries, err := sc.Scan(ctx, group.Cwd, item)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if err := writeEntry(tw, entry); err != nil {
				return nil, fmt.Errorf("failed to add %s: %w", entry.Path, err)
			}
		}

		contents[item] = contentLines(entries)
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := cw.Close(); err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, err
	}

	return contents, f.Close()
}

func writeEntry(tw *tar.Writer, entry scanner.Entry) error {
	mode := entry.Info.Mode()
	if mode&os.ModeSocket != 0 {
		logrus.Warnf("Skipping socket %s", entry.Path)
		return nil
	}

	hdr, err := tar.FileInfoHeader(entry.Info, entry.Link)
	if err != nil {
		return err
	}

	// Entry names are relative to the group cwd, never absolute
	hdr.Name = entry.Name
	if entry.Info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	if !mode.IsRegular() {
		return nil
	}

	src, err := os.Open(entry.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := io.Copy(tw, src)
	if err != nil {
		return err
	}
	if n != hdr.Size {
		return fmt.Errorf("file changed size while archiving (%d != %d)", n, hdr.Size)
	}
	return nil
}
