package cli

import (
	"errors"

	"github.com/ralt/rmrf/internal/archive"
	"github.com/ralt/rmrf/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRcvrCmd creates the rcvr command
func NewRcvrCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rcvr ids...",
		Short: "recover rmrf|bkup files",
		Long: `Restores archives into the directories they were taken from. An id is
an archive directory name as printed by ls-rmrf or ls-bkup, or a unique
prefix of one. The rmrf store is searched first, then the bkup store.
Recovered rmrf archives are deleted; bkup archives are kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(cmd, args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace existing files")

	return cmd
}

func runRecover(cmd *cobra.Command, ids []string, force bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var stores []*archive.Store
	for _, kind := range []string{models.KindRmrf, models.KindBkup} {
		store, err := openStore(cfg, kind, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		stores = append(stores, store)
	}

	ctx := cmd.Context()
	for _, id := range ids {
		var meta *models.Metadata
		for _, store := range stores {
			meta, err = store.Recover(ctx, id, force)
			if !errors.Is(err, archive.ErrNotFound) {
				break
			}
		}
		if err != nil {
			if models.IsType(err, models.ErrLock) {
				return err
			}
			return models.NewError(models.ErrRecover, id, err)
		}
		logrus.Infof("Recovered %d item(s) into %s", len(meta.Items), meta.Cwd)
	}

	return nil
}
