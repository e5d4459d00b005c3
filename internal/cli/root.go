package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Bare targets run the rmrf action.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rmrf [targets...]",
		Short: "A safe file archival and removal tool",
		Long: `rmrf archives files and directories into timestamped tarballs before
removing them, so that they can be listed and recovered later.

Actions:
  rmrf       archive into the rmrf store and remove [default]
  bkup       archive into the bkup store
  bkup-rmrf  archive into the bkup store and remove
  rcvr       recover an archive into the directory it came from
  ls-rmrf    list rmrf archives
  ls-bkup    list bkup archives

Settings are read from ~/.config/rmrf/rmrf.cfg.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runRemove(cmd, args)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewRmrfCmd())
	rootCmd.AddCommand(NewBkupCmd())
	rootCmd.AddCommand(NewBkupRmrfCmd())
	rootCmd.AddCommand(NewRcvrCmd())
	rootCmd.AddCommand(NewLsRmrfCmd())
	rootCmd.AddCommand(NewLsBkupCmd())
	rootCmd.AddCommand(NewInstallCmd())
	rootCmd.AddCommand(NewPkgCmd())

	return rootCmd
}
