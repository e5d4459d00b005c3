package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// HarvestOptions controls Harvest
type HarvestOptions struct {
	// KeepDays is the age after which an archive is removed, negative disables
	KeepDays int
	// Threshold is the store filesystem usage percent above which the
	// oldest archives are removed, 0 disables
	Threshold int
	// Protect lists ids the threshold pass must not remove
	Protect map[string]bool
}

// Harvest removes expired archives and, when the store filesystem is
// fuller than the threshold, the oldest remaining ones. The metadata of
// every removed archive is printed first. It returns the removed ids.
func (s *Store) Harvest(ctx context.Context, opts HarvestOptions) ([]string, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	now := s.Now()
	keep := time.Duration(opts.KeepDays) * 24 * time.Hour

	var removed []string
	var remaining []string

	for _, id := range ids {
		created, ok := ParseID(id)
		if !ok {
			logrus.Warnf("Skipping %s: not an archive directory", filepath.Join(s.Root, id))
			continue
		}

		if opts.KeepDays >= 0 && now.Sub(created) > keep {
			if err := s.drop(ctx, id); err != nil {
				return removed, err
			}
			removed = append(removed, id)
			continue
		}
		remaining = append(remaining, id)
	}

	if opts.Threshold <= 0 || opts.Threshold >= 100 || s.usage == nil {
		return removed, nil
	}

	thresholdRemoved, err := s.harvestThreshold(ctx, remaining, opts)
	return append(removed, thresholdRemoved...), err
}

// diskStats is the space of the filesystem holding the store, computed
// like df: usage is used / (used + available to users)
type diskStats struct {
	Used  uint64
	Avail uint64
}

func (d diskStats) percent() float64 {
	if d.Used+d.Avail == 0 {
		return 0
	}
	return float64(d.Used) * 100 / float64(d.Used+d.Avail)
}

// excess is the number of bytes to free to get down to threshold percent
func (d diskStats) excess(threshold int) uint64 {
	limit := uint64(float64(d.Used+d.Avail) * float64(threshold) / 100)
	if d.Used <= limit {
		return 0
	}
	return d.Used - limit
}

// harvestThreshold removes the oldest unprotected archives of ids while
// the store filesystem is above the threshold. It only starts when the
// candidates could bring usage under the threshold, and stops as soon as
// a removal does not lower usage.
func (s *Store) harvestThreshold(ctx context.Context, ids []string, opts HarvestOptions) ([]string, error) {
	stats, err := s.usage(s.Root)
	if err != nil {
		logrus.Warnf("Cannot determine disk usage of %s: %v", s.Root, err)
		return nil, nil
	}
	if stats.percent() <= float64(opts.Threshold) {
		return nil, nil
	}

	// ids sort chronologically, so candidates are oldest first
	var candidates []string
	var reclaimable uint64
	for _, id := range ids {
		if opts.Protect[id] {
			continue
		}
		size, err := dirSize(filepath.Join(s.Root, id))
		if err != nil {
			logrus.Warnf("Cannot size %s: %v", filepath.Join(s.Root, id), err)
			continue
		}
		candidates = append(candidates, id)
		reclaimable += size
	}

	if gap := stats.excess(opts.Threshold); reclaimable < gap {
		logrus.Warnf("Disk usage %.1f%% above %d%% but %s holds only %d of the %d bytes over, not harvesting",
			stats.percent(), opts.Threshold, s.Root, reclaimable, gap)
		return nil, nil
	}

	var removed []string
	for _, id := range candidates {
		logrus.Infof("Disk usage %.1f%% above %d%%, harvesting %s", stats.percent(), opts.Threshold, id)
		if err := s.drop(ctx, id); err != nil {
			return removed, err
		}
		removed = append(removed, id)

		after, err := s.usage(s.Root)
		if err != nil {
			logrus.Warnf("Cannot determine disk usage of %s: %v", s.Root, err)
			break
		}
		if after.percent() <= float64(opts.Threshold) {
			break
		}
		if after.Used >= stats.Used {
			logrus.Warnf("Harvesting %s did not lower disk usage (%.1f%%), stopping", id, after.percent())
			break
		}
		stats = after
	}

	return removed, nil
}

// dirSize sums the sizes of the regular files under dir
func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}

func (s *Store) drop(ctx context.Context, id string) error {
	dir := filepath.Join(s.Root, id)

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err == nil {
		if _, err := fmt.Fprintf(s.Out, "%s:\n%s", id, indent(data)); err != nil {
			return err
		}
	}

	logrus.Debugf("Harvesting %s", dir)
	if err := utils.Remove(ctx, s.Runner, dir, s.Sudo); err != nil {
		return fmt.Errorf("failed to harvest %s: %w", dir, err)
	}
	return nil
}
