package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ralt/rmrf/internal/generator"
	"github.com/ralt/rmrf/internal/generator/homebrew"
	"github.com/ralt/rmrf/internal/generator/nix"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/release"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultDescription = "tool for staging rmrf-ing or bkup-ing files"

type pkgFlags struct {
	spec        models.PackageSpec
	baseURL     string
	linuxSHA256 string
	macosSHA256 string
	from        string
	output      string
}

func generators() map[string]generator.Generator {
	gens := make(map[string]generator.Generator)
	for _, g := range []generator.Generator{nix.NewGenerator(), homebrew.NewGenerator()} {
		gens[g.Name()] = g
	}
	return gens
}

// NewPkgCmd creates the pkg command
func NewPkgCmd() *cobra.Command {
	var flags pkgFlags

	cmd := &cobra.Command{
		Use:   "pkg nix|brew",
		Short: "Print a packaging recipe for a pinned release",
		Long: `Writes a Nix derivation or a Homebrew formula that fetches the prebuilt
release tarball for a pinned version and SHA-256 and installs the rmrf
binary into the package's bin directory.

The Nix derivation needs --sha256-linux. A formula gets one block per
platform hash given.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"nix", "brew"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPkg(cmd, args[0], &flags)
		},
	}

	cmd.Flags().StringVar(&flags.spec.Name, "name", release.BinaryName, "Package name")
	cmd.Flags().StringVar(&flags.spec.Binary, "binary", "", "Executable in the release tarball (default rmrf)")
	cmd.Flags().StringVar(&flags.spec.Version, "version", "", "Release version (required)")
	cmd.Flags().StringVar(&flags.spec.Owner, "owner", release.DefaultOwner, "GitHub owner")
	cmd.Flags().StringVar(&flags.spec.Repo, "repo", release.DefaultRepo, "GitHub repository")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", release.DefaultBaseURL, "Release host")
	cmd.Flags().StringVar(&flags.linuxSHA256, "sha256-linux", "", "SHA-256 of the linux tarball")
	cmd.Flags().StringVar(&flags.macosSHA256, "sha256-macos", "", "SHA-256 of the macos tarball")
	cmd.Flags().StringVar(&flags.spec.Description, "description", "", "Package description")
	cmd.Flags().StringVar(&flags.spec.Homepage, "homepage", "", "Homepage (default the GitHub project)")
	cmd.Flags().StringVar(&flags.spec.License, "license", "", "SPDX license id (default MIT)")
	cmd.Flags().StringSliceVar(&flags.spec.Maintainers, "maintainer", nil, "Maintainer handles")
	cmd.Flags().StringSliceVar(&flags.spec.Platforms, "platform", nil, "Supported platforms")
	cmd.Flags().StringVar(&flags.from, "from", "", "Existing formula to inherit metadata from (brew)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the recipe to a file instead of stdout")

	_ = cmd.MarkFlagRequired("version")

	return cmd
}

func runPkg(cmd *cobra.Command, kind string, flags *pkgFlags) error {
	gen, ok := generators()[kind]
	if !ok {
		return models.NewError(models.ErrGenerate, "", fmt.Errorf("unknown recipe kind %q", kind))
	}

	spec := flags.spec
	for _, pin := range [][2]string{{"linux", flags.linuxSHA256}, {"macos", flags.macosSHA256}} {
		if pin[1] == "" {
			continue
		}
		asset, err := releaseAsset(&spec, flags.baseURL, pin[0], pin[1])
		if err != nil {
			return models.NewError(models.ErrGenerate, "", err)
		}
		spec.Assets = append(spec.Assets, asset)
	}

	if flags.from != "" {
		if kind != "brew" {
			return models.NewError(models.ErrGenerate, flags.from, fmt.Errorf("--from is only supported for brew"))
		}
		base, err := readFormula(flags.from)
		if err != nil {
			return models.NewError(models.ErrGenerate, flags.from, err)
		}
		generator.Inherit(&spec, base)
	}

	if spec.Description == "" {
		spec.Description = defaultDescription
	}
	if spec.Homepage == "" {
		spec.Homepage = fmt.Sprintf("https://github.com/%s/%s", spec.Owner, spec.Repo)
	}
	if spec.License == "" {
		spec.License = "MIT"
	}

	var buf bytes.Buffer
	if err := gen.Generate(&buf, &spec); err != nil {
		return models.NewError(models.ErrGenerate, "", fmt.Errorf("failed to generate %s recipe: %w", kind, err))
	}

	if flags.output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := utils.WriteFile(flags.output, buf.Bytes(), 0644); err != nil {
		return models.NewError(models.ErrFileOp, flags.output, err)
	}
	logrus.Infof("Wrote %s recipe to %s", gen.Name(), flags.output)
	return nil
}

func releaseAsset(spec *models.PackageSpec, baseURL, platform, sum string) (models.Asset, error) {
	hexSum, err := utils.ParseHash(sum)
	if err != nil {
		return models.Asset{}, fmt.Errorf("--sha256-%s: %w", platform, err)
	}

	rel := release.Release{
		Owner:   spec.Owner,
		Repo:    spec.Repo,
		Version: spec.Version,
		OS:      platform,
		BaseURL: baseURL,
	}
	url, err := rel.URL()
	if err != nil {
		return models.Asset{}, err
	}

	return models.Asset{Platform: platform, URL: url, SHA256: hexSum}, nil
}

func readFormula(path string) (*models.PackageSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return homebrew.ParseFormula(f)
}
