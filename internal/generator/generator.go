package generator

import (
	"fmt"
	"io"

	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/utils"
)

// Generator interface for packaging recipe generators
type Generator interface {
	// Generate writes a recipe for the pinned release described by spec
	Generate(w io.Writer, spec *models.PackageSpec) error

	// Validate checks that spec carries everything this recipe needs
	Validate(spec *models.PackageSpec) error

	// Name returns the recipe kind, such as "nix" or "brew"
	Name() string
}

// ValidateSpec checks the fields shared by every recipe
func ValidateSpec(spec *models.PackageSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("package name is required")
	}
	if spec.Version == "" {
		return fmt.Errorf("package version is required")
	}
	if len(spec.Assets) == 0 {
		return fmt.Errorf("at least one release asset is required")
	}
	for _, asset := range spec.Assets {
		if asset.URL == "" {
			return fmt.Errorf("asset %s has no URL", asset.Platform)
		}
		if _, err := utils.ParseHash(asset.SHA256); err != nil {
			return fmt.Errorf("asset %s: %w", asset.Platform, err)
		}
	}
	return nil
}

// Inherit copies descriptive metadata from base into the fields spec
// leaves empty
func Inherit(spec, base *models.PackageSpec) {
	if base == nil {
		return
	}
	if spec.Description == "" {
		spec.Description = base.Description
	}
	if spec.Homepage == "" {
		spec.Homepage = base.Homepage
	}
	if spec.License == "" {
		spec.License = base.License
	}
	if len(spec.Maintainers) == 0 {
		spec.Maintainers = base.Maintainers
	}
	if len(spec.Platforms) == 0 {
		spec.Platforms = base.Platforms
	}
	if spec.Binary == "" {
		spec.Binary = base.Binary
	}
}
