package homebrew

import (
	"fmt"
	"io"
	"strings"

	"github.com/ralt/rmrf/internal/generator"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/release"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// Generator implements the generator.Generator interface for Homebrew formulas
type Generator struct{}

// NewGenerator creates a new Homebrew formula generator
func NewGenerator() generator.Generator {
	return &Generator{}
}

// Name returns the recipe kind
func (g *Generator) Name() string {
	return "brew"
}

// Validate checks the spec
func (g *Generator) Validate(spec *models.PackageSpec) error {
	if err := generator.ValidateSpec(spec); err != nil {
		return err
	}
	for _, asset := range spec.Assets {
		if asset.Platform != "macos" && asset.Platform != "linux" {
			return fmt.Errorf("unsupported platform %q", asset.Platform)
		}
	}
	return nil
}

// Generate writes a Ruby formula installing the prebuilt binary
func (g *Generator) Generate(w io.Writer, spec *models.PackageSpec) error {
	if err := g.Validate(spec); err != nil {
		return err
	}

	var formula strings.Builder

	fmt.Fprintf(&formula, "class %s < Formula\n", toClassName(spec.Name))
	if spec.Description != "" {
		fmt.Fprintf(&formula, "  desc %s\n", quote(spec.Description))
	}
	if spec.Homepage != "" {
		fmt.Fprintf(&formula, "  homepage %s\n", quote(spec.Homepage))
	}
	fmt.Fprintf(&formula, "  version %s\n", quote(spec.Version))
	if spec.License != "" {
		fmt.Fprintf(&formula, "  license %s\n", quote(spec.License))
	}

	for _, platform := range []string{"macos", "linux"} {
		asset := spec.Asset(platform)
		if asset == nil {
			continue
		}
		sum, err := utils.ParseHash(asset.SHA256)
		if err != nil {
			return err
		}
		fmt.Fprintf(&formula, "\n  on_%s do\n", platform)
		fmt.Fprintf(&formula, "    url %s\n", quote(asset.URL))
		fmt.Fprintf(&formula, "    sha256 %s\n", quote(sum))
		formula.WriteString("  end\n")
	}

	binary := spec.Binary
	if binary == "" {
		binary = release.BinaryName
	}

	formula.WriteString("\n  def install\n")
	fmt.Fprintf(&formula, "    bin.install %s\n", quote(binary))
	formula.WriteString("  end\n")

	formula.WriteString("\n  test do\n")
	fmt.Fprintf(&formula, "    system \"#{bin}/%s\", \"--help\"\n", binary)
	formula.WriteString("  end\n")

	formula.WriteString("end\n")

	if _, err := io.WriteString(w, formula.String()); err != nil {
		return err
	}

	logrus.Debugf("Generated formula %s for %s %s", toClassName(spec.Name), spec.Name, spec.Version)
	return nil
}

// toClassName converts a package name to a Ruby class name
func toClassName(name string) string {
	// Replace hyphens and underscores with spaces
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	// Title case each word
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	return strings.Join(words, "")
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "#{", `\#{`)
	return `"` + r.Replace(s) + `"`
}
