package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/rmrf/internal/archive"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/signer"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// InstallOptions controls Install
type InstallOptions struct {
	// OutDir receives bin/rmrf
	OutDir string
	// Verifier checks <url>.asc when set
	Verifier signer.Verifier
	// Interpreter and RPath are passed to patchelf when set
	Interpreter string
	RPath       string
	// SearchDirs extends the library lookup of the linkage check
	SearchDirs  []string
	SkipLinkage bool
	Runner      utils.Runner
	Fetcher     *Fetcher
}

// Install downloads, verifies and unpacks a pinned release. It returns the
// path of the installed binary.
func Install(ctx context.Context, rel Release, opts InstallOptions) (string, error) {
	if err := rel.Validate(); err != nil {
		return "", models.NewError(models.ErrInstall, "", err)
	}
	want, err := utils.ParseHash(rel.SHA256)
	if err != nil {
		return "", models.NewError(models.ErrChecksum, "", err)
	}
	url, err := rel.URL()
	if err != nil {
		return "", models.NewError(models.ErrInstall, "", err)
	}
	asset, _ := rel.AssetName()

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	runner := opts.Runner
	if runner == nil {
		runner = utils.NewExecRunner()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}

	tmp, err := os.MkdirTemp("", "rmrf-release-")
	if err != nil {
		return "", models.NewError(models.ErrFileOp, "", err)
	}
	defer os.RemoveAll(tmp)

	assetPath := filepath.Join(tmp, asset)
	logrus.Infof("Downloading %s", url)
	if _, err := fetcher.Fetch(ctx, url, assetPath); err != nil {
		return "", models.NewError(models.ErrFetch, url, err)
	}

	sums, err := utils.CalculateChecksums(assetPath)
	if err != nil {
		return "", models.NewError(models.ErrFileOp, assetPath, err)
	}
	if sums.SHA256 != want {
		return "", models.NewError(models.ErrChecksum, asset,
			fmt.Errorf("sha256 mismatch: expected %s, got %s", want, sums.SHA256))
	}
	logrus.Debugf("Checksum of %s ok", asset)

	if opts.Verifier != nil {
		if err := verifySignature(ctx, fetcher, opts.Verifier, url, assetPath); err != nil {
			return "", err
		}
	}

	binDir := filepath.Join(outDir, "bin")
	if _, err := archive.Extract(ctx, assetPath, binDir, archive.ExtractOptions{Overwrite: true}); err != nil {
		return "", models.NewError(models.ErrInstall, binDir, err)
	}

	binPath := filepath.Join(binDir, BinaryName)
	info, err := os.Lstat(binPath)
	if err != nil {
		return "", models.NewError(models.ErrInstall, binPath, fmt.Errorf("release does not contain %s: %w", BinaryName, err))
	}
	if !info.Mode().IsRegular() {
		return "", models.NewError(models.ErrInstall, binPath, fmt.Errorf("%s is not a regular file", BinaryName))
	}
	if err := os.Chmod(binPath, info.Mode().Perm()|0755); err != nil {
		return "", models.NewError(models.ErrInstall, binPath, err)
	}

	if opts.Interpreter != "" || opts.RPath != "" {
		if err := Patch(ctx, runner, binPath, opts.Interpreter, opts.RPath); err != nil {
			return "", models.NewError(models.ErrPatch, binPath, err)
		}
	}

	if !opts.SkipLinkage {
		if _, err := CheckLinkage(binPath, opts.SearchDirs); err != nil {
			return "", models.NewError(models.ErrLinkage, binPath, err)
		}
	}

	logrus.Infof("Installed %s", binPath)
	return binPath, nil
}

func verifySignature(ctx context.Context, fetcher *Fetcher, v signer.Verifier, url, assetPath string) error {
	sigPath := assetPath + ".asc"
	if _, err := fetcher.Fetch(ctx, url+".asc", sigPath); err != nil {
		return models.NewError(models.ErrFetch, url+".asc", err)
	}

	data, err := os.Open(assetPath)
	if err != nil {
		return models.NewError(models.ErrFileOp, assetPath, err)
	}
	defer data.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return models.NewError(models.ErrFileOp, sigPath, err)
	}
	defer sig.Close()

	if err := v.VerifyDetached(data, sig); err != nil {
		return models.NewError(models.ErrSignature, filepath.Base(assetPath), err)
	}
	return nil
}

// Patch rewrites the interpreter and/or rpath of an ELF binary with patchelf
func Patch(ctx context.Context, runner utils.Runner, path, interpreter, rpath string) error {
	var args []string
	if interpreter != "" {
		args = append(args, "--set-interpreter", interpreter)
	}
	if rpath != "" {
		args = append(args, "--set-rpath", rpath)
	}
	if len(args) == 0 {
		return nil
	}
	args = append(args, path)

	logrus.Debugf("patchelf %v", args)
	if _, err := runner.Run(ctx, false, "patchelf", args...); err != nil {
		return err
	}
	return nil
}
