package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// Recover restores the archive named by id (or a unique prefix of it)
// into the directory it was taken from. Existing destinations abort the
// recovery unless force is set, in which case they are replaced. Archives
// in an rmrf store are deleted once restored.
func (s *Store) Recover(ctx context.Context, id string, force bool) (*models.Metadata, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	resolved, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.Root, resolved)

	meta, _, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	archivePath := filepath.Join(dir, meta.Archive)
	if meta.SHA256 != "" {
		sums, err := utils.CalculateChecksums(archivePath)
		if err != nil {
			return nil, err
		}
		if sums.SHA256 != meta.SHA256 {
			return nil, fmt.Errorf("archive %s is corrupt: sha256 %s, expected %s", archivePath, sums.SHA256, meta.SHA256)
		}
	}

	var conflicts []string
	for _, item := range meta.Items {
		if utils.Exists(filepath.Join(meta.Cwd, item)) {
			conflicts = append(conflicts, filepath.Join(meta.Cwd, item))
		}
	}

	if len(conflicts) > 0 {
		if !force {
			return nil, fmt.Errorf("refusing to overwrite existing %s (use --force)", strings.Join(conflicts, ", "))
		}
		for _, p := range conflicts {
			logrus.Warnf("Replacing %s", p)
			if err := utils.Remove(ctx, s.Runner, p, s.Sudo); err != nil {
				return nil, err
			}
		}
	}

	written, err := Extract(ctx, archivePath, meta.Cwd, ExtractOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}
	logrus.Infof("Recovered %d entries from %s into %s", len(written), resolved, meta.Cwd)

	if s.Kind == models.KindRmrf {
		if err := utils.Remove(ctx, s.Runner, dir, s.Sudo); err != nil {
			return meta, fmt.Errorf("recovered but failed to remove %s: %w", dir, err)
		}
	}

	return meta, nil
}
