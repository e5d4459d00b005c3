package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/release"
	"github.com/ralt/rmrf/internal/signer"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type installFlags struct {
	rel         release.Release
	outDir      string
	keyring     string
	interpreter string
	rpath       string
	libDirs     []string
	skipLinkage bool
}

// NewInstallCmd creates the install command
func NewInstallCmd() *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a pinned prebuilt release",
		Long: `Downloads the prebuilt release tarball for this platform, verifies its
pinned SHA-256 (and optionally a detached OpenPGP signature), unpacks it
into <out>/bin and checks that the binary's loader and libraries resolve.
--interpreter and --rpath rewrite the binary with patchelf first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.rel.Version, "version", "", "Release version (required)")
	cmd.Flags().StringVar(&flags.rel.SHA256, "sha256", "", "Pinned SHA-256 of the release tarball, hex or sha256-<base64> (required)")
	cmd.Flags().StringVar(&flags.rel.Owner, "owner", release.DefaultOwner, "GitHub owner")
	cmd.Flags().StringVar(&flags.rel.Repo, "repo", release.DefaultRepo, "GitHub repository")
	cmd.Flags().StringVar(&flags.rel.OS, "os", "", "Target OS (linux, darwin), defaults to this one")
	cmd.Flags().StringVar(&flags.rel.BaseURL, "base-url", release.DefaultBaseURL, "Release host")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "Install prefix (default ~/.local)")
	cmd.Flags().StringVarP(&flags.keyring, "keyring", "k", "", "Public keyring to verify <asset>.asc against")
	cmd.Flags().StringVar(&flags.interpreter, "interpreter", "", "ELF interpreter to set with patchelf")
	cmd.Flags().StringVar(&flags.rpath, "rpath", "", "ELF rpath to set with patchelf")
	cmd.Flags().StringSliceVar(&flags.libDirs, "lib-dir", nil, "Library directories for the linkage check")
	cmd.Flags().BoolVar(&flags.skipLinkage, "no-linkage-check", false, "Skip the linkage check")

	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("sha256")

	return cmd
}

func runInstall(cmd *cobra.Command, flags *installFlags) error {
	outDir := flags.outDir
	if outDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return models.NewError(models.ErrInstall, "", fmt.Errorf("no --out given and no home directory: %w", err))
		}
		outDir = filepath.Join(home, ".local")
	}
	outDir, err := utils.ExpandPath(outDir)
	if err != nil {
		return models.NewError(models.ErrInstall, flags.outDir, err)
	}

	opts := release.InstallOptions{
		OutDir:      outDir,
		Interpreter: flags.interpreter,
		RPath:       flags.rpath,
		SearchDirs:  flags.libDirs,
		SkipLinkage: flags.skipLinkage,
	}

	if flags.keyring != "" {
		verifier, err := signer.NewGPGVerifier(flags.keyring)
		if err != nil {
			return models.NewError(models.ErrSignature, flags.keyring, err)
		}
		opts.Verifier = verifier
		logrus.Info("GPG verifier initialized")
	}

	bin, err := release.Install(cmd.Context(), flags.rel, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), bin)
	return nil
}
