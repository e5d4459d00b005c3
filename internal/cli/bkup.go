package cli

import (
	"github.com/ralt/rmrf/internal/models"
	"github.com/spf13/cobra"
)

// NewBkupCmd creates the bkup command
func NewBkupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bkup targets...",
		Short: "bkup files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, args, false)
		},
	}
}

// NewBkupRmrfCmd creates the bkup-rmrf command
func NewBkupRmrfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bkup-rmrf targets...",
		Short: "bkup files and rmrf the local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, args, true)
		},
	}
}

// bkup archives are never harvested
func runBackup(cmd *cobra.Command, targets []string, remove bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, models.KindBkup, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	_, err = archiveTargets(cmd.Context(), cfg, store, targets, remove)
	return err
}
