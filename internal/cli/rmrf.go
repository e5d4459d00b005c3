package cli

import (
	"github.com/ralt/rmrf/internal/archive"
	"github.com/ralt/rmrf/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRmrfCmd creates the rmrf command
func NewRmrfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmrf targets...",
		Short: "rmrf files [default]",
		Long: `Archives the targets into the rmrf store, one archive per parent
directory, then removes them. Archives older than the configured number
of days are harvested afterwards, and the oldest ones are dropped while
the store filesystem is fuller than the configured threshold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args)
		},
	}
}

func runRemove(cmd *cobra.Command, targets []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(cfg, models.KindRmrf, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	archived, err := archiveTargets(ctx, cfg, store, targets, true)
	if err != nil {
		return err
	}

	harvested, err := store.Harvest(ctx, archive.HarvestOptions{
		KeepDays:  cfg.Keep,
		Threshold: cfg.Threshold,
		Protect:   protected(archived),
	})
	if err != nil {
		if models.IsType(err, models.ErrLock) {
			return err
		}
		return models.NewError(models.ErrHarvest, store.Root, err)
	}
	if len(harvested) > 0 {
		logrus.Infof("Harvested %d archive(s) from %s", len(harvested), store.Root)
	}

	return nil
}
