package cli

import (
	"context"
	"io"
	"os"

	"github.com/ralt/rmrf/internal/archive"
	"github.com/ralt/rmrf/internal/config"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		if models.IsType(err, models.ErrConfig) {
			return nil, err
		}
		return nil, models.NewError(models.ErrConfig, path, err)
	}
	logrus.Debugf("Configuration: %+v", *cfg)
	return cfg, nil
}

func storeRoot(cfg *models.Config, kind string) string {
	if kind == models.KindBkup {
		return cfg.BkupPath
	}
	return cfg.RmrfPath
}

func openStore(cfg *models.Config, kind string, out io.Writer) (*archive.Store, error) {
	store, err := archive.NewStore(storeRoot(cfg, kind), kind, cfg, out)
	if err != nil {
		return nil, models.NewError(models.ErrConfig, cfg.Path, err)
	}
	return store, nil
}

// archiveTargets archives targets into the store of kind, one archive per
// parent directory, and removes the originals when remove is set. Missing
// targets are skipped with a warning.
func archiveTargets(ctx context.Context, cfg *models.Config, store *archive.Store, targets []string, remove bool) ([]*archive.Archived, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, models.NewError(models.ErrFileOp, "", err)
	}

	groups, missing, err := archive.GroupTargets(targets, cwd)
	if err != nil {
		return nil, models.NewError(models.ErrArchive, "", err)
	}
	for _, m := range missing {
		logrus.Warnf("%s does not exist, skipping", m)
	}
	if len(groups) == 0 {
		logrus.Warn("Nothing to archive")
		return nil, nil
	}

	if err := archive.Guard(groups, cfg.RmrfPath, cfg.BkupPath); err != nil {
		return nil, models.NewError(models.ErrArchive, "", err)
	}

	var archived []*archive.Archived
	for _, group := range groups {
		a, err := store.Archive(ctx, group)
		if err != nil {
			if models.IsType(err, models.ErrLock) {
				return archived, err
			}
			return archived, models.NewError(models.ErrArchive, group.Cwd, err)
		}
		archived = append(archived, a)

		if !remove {
			continue
		}
		for _, p := range group.Paths() {
			if err := utils.Remove(ctx, store.Runner, p, cfg.Sudo); err != nil {
				return archived, models.NewError(models.ErrRemove, p, err)
			}
			logrus.Debugf("Removed %s", p)
		}
	}

	return archived, nil
}

func protected(archived []*archive.Archived) map[string]bool {
	ids := make(map[string]bool, len(archived))
	for _, a := range archived {
		ids[a.ID] = true
	}
	return ids
}
