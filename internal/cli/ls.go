package cli

import (
	"os"

	"github.com/ralt/rmrf/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const lsLong = `Prints the metadata of every archive with an item matching one of the
patterns, or of every archive when none is given. Patterns are left
anchored: "app" matches app.log and app/. Patterns containing *, ?, [ or {
are globs and support **.`

// NewLsRmrfCmd creates the ls-rmrf command
func NewLsRmrfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-rmrf [patterns...]",
		Short: "list rmrf files",
		Long:  lsLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, models.KindRmrf, args)
		},
	}
}

// NewLsBkupCmd creates the ls-bkup command
func NewLsBkupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-bkup [patterns...]",
		Short: "list bkup files",
		Long:  lsLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, models.KindBkup, args)
		},
	}
}

func runList(cmd *cobra.Command, kind string, patterns []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, kind, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return models.NewError(models.ErrFileOp, "", err)
	}

	n, err := store.List(cmd.Context(), patterns, cwd)
	if err != nil {
		return models.NewError(models.ErrList, store.Root, err)
	}
	logrus.Debugf("Listed %d archive(s) from %s", n, store.Root)

	return nil
}
