package release

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	// DefaultOwner and DefaultRepo locate the upstream GitHub project
	DefaultOwner = "scottidler"
	DefaultRepo  = "rmrf"

	// DefaultBaseURL is the GitHub host serving release assets
	DefaultBaseURL = "https://github.com"

	// BinaryName is the executable shipped in every release tarball
	BinaryName = "rmrf"
)

// Release identifies one prebuilt release asset
type Release struct {
	Owner   string
	Repo    string
	Version string
	// SHA256 is the pinned digest, hex or "sha256-<base64>"
	SHA256 string
	// OS is a Go GOOS value, defaults to the running platform
	OS string
	// BaseURL overrides DefaultBaseURL, for mirrors
	BaseURL string
}

// Tag returns the git tag of the release
func (r Release) Tag() string {
	return "v" + strings.TrimPrefix(r.Version, "v")
}

// Platform returns the platform suffix used in asset names
func (r Release) Platform() (string, error) {
	goos := r.OS
	if goos == "" {
		goos = runtime.GOOS
	}
	return PlatformName(goos)
}

// PlatformName maps a GOOS value to the asset platform suffix
func PlatformName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "linux", nil
	case "darwin", "macos":
		return "macos", nil
	default:
		return "", fmt.Errorf("no prebuilt release for %s", goos)
	}
}

// AssetName returns the release tarball name, rmrf-v<version>-<platform>.tar.gz
func (r Release) AssetName() (string, error) {
	platform, err := r.Platform()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s.tar.gz", BinaryName, r.Tag(), platform), nil
}

// URL returns the download URL of the release tarball
func (r Release) URL() (string, error) {
	asset, err := r.AssetName()
	if err != nil {
		return "", err
	}

	base := r.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		strings.TrimSuffix(base, "/"), r.owner(), r.repo(), r.Tag(), asset), nil
}

// Validate checks that the release is fully pinned
func (r Release) Validate() error {
	if strings.TrimPrefix(r.Version, "v") == "" {
		return fmt.Errorf("version is required")
	}
	if r.SHA256 == "" {
		return fmt.Errorf("sha256 is required")
	}
	_, err := r.Platform()
	return err
}

func (r Release) owner() string {
	if r.Owner == "" {
		return DefaultOwner
	}
	return r.Owner
}

func (r Release) repo() string {
	if r.Repo == "" {
		return DefaultRepo
	}
	return r.Repo
}
