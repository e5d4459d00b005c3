package nix

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ralt/rmrf/internal/generator"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultPlatforms is used when the spec declares none
var DefaultPlatforms = []string{"x86_64-linux"}

// spdx identifiers to nixpkgs lib.licenses attributes
var licenses = map[string]string{
	"MIT":          "mit",
	"Apache-2.0":   "asl20",
	"BSD-2-Clause": "bsd2",
	"BSD-3-Clause": "bsd3",
	"GPL-2.0":      "gpl2Only",
	"GPL-3.0":      "gpl3Only",
	"MPL-2.0":      "mpl20",
	"ISC":          "isc",
	"Unlicense":    "unlicense",
}

// Generator implements the generator.Generator interface for Nix derivations
type Generator struct{}

// NewGenerator creates a new Nix derivation generator
func NewGenerator() generator.Generator {
	return &Generator{}
}

// Name returns the recipe kind
func (g *Generator) Name() string {
	return "nix"
}

// Validate checks that the spec has a Linux asset
func (g *Generator) Validate(spec *models.PackageSpec) error {
	if err := generator.ValidateSpec(spec); err != nil {
		return err
	}
	if spec.Asset("linux") == nil {
		return fmt.Errorf("nix derivation needs a linux asset")
	}
	return nil
}

// Generate writes a derivation that fetches the prebuilt Linux tarball,
// unpacks it into $out/bin and lets autoPatchelfHook rewrite the loader
// paths against gcc and glibc from the store.
func (g *Generator) Generate(w io.Writer, spec *models.PackageSpec) error {
	if err := g.Validate(spec); err != nil {
		return err
	}

	asset := spec.Asset("linux")
	hexSum, err := utils.ParseHash(asset.SHA256)
	if err != nil {
		return err
	}
	hash, err := utils.SRIHash(hexSum)
	if err != nil {
		return err
	}

	var b strings.Builder

	b.WriteString("{ lib\n")
	b.WriteString(", stdenv\n")
	b.WriteString(", fetchurl\n")
	b.WriteString(", autoPatchelfHook\n")
	b.WriteString(", gcc\n")
	b.WriteString(", glibc\n")
	b.WriteString("}:\n\n")

	b.WriteString("stdenv.mkDerivation rec {\n")
	fmt.Fprintf(&b, "  pname = %s;\n", quote(spec.Name))
	fmt.Fprintf(&b, "  version = %s;\n\n", quote(spec.Version))

	b.WriteString("  src = fetchurl {\n")
	fmt.Fprintf(&b, "    url = %s;\n", quote(asset.URL))
	fmt.Fprintf(&b, "    hash = %s;\n", quote(hash))
	b.WriteString("  };\n\n")

	b.WriteString("  nativeBuildInputs = [ autoPatchelfHook ];\n\n")

	b.WriteString("  buildInputs = [\n")
	b.WriteString("    gcc\n")
	b.WriteString("    glibc\n")
	b.WriteString("    stdenv.cc.cc.lib\n")
	b.WriteString("  ];\n\n")

	b.WriteString("  sourceRoot = \".\";\n\n")

	b.WriteString("  installPhase = ''\n")
	b.WriteString("    runHook preInstall\n")
	b.WriteString("    mkdir -p $out/bin\n")
	b.WriteString("    tar -xzf $src -C $out/bin\n")
	b.WriteString("    runHook postInstall\n")
	b.WriteString("  '';\n\n")

	writeMeta(&b, spec)

	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	logrus.Debugf("Generated Nix derivation for %s %s", spec.Name, spec.Version)
	return nil
}

func writeMeta(b *strings.Builder, spec *models.PackageSpec) {
	b.WriteString("  meta = with lib; {\n")
	if spec.Description != "" {
		fmt.Fprintf(b, "    description = %s;\n", quote(spec.Description))
	}
	if spec.Homepage != "" {
		fmt.Fprintf(b, "    homepage = %s;\n", quote(spec.Homepage))
	}
	if spec.License != "" {
		fmt.Fprintf(b, "    license = %s;\n", license(spec.License))
	}

	platforms := spec.Platforms
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	quoted := make([]string, len(platforms))
	for i, p := range platforms {
		quoted[i] = quote(p)
	}
	fmt.Fprintf(b, "    platforms = [ %s ];\n", strings.Join(quoted, " "))

	if len(spec.Maintainers) > 0 {
		maintainers := append([]string{}, spec.Maintainers...)
		sort.Strings(maintainers)
		fmt.Fprintf(b, "    maintainers = with maintainers; [ %s ];\n", strings.Join(maintainers, " "))
	}
	b.WriteString("  };\n")
}

func license(id string) string {
	if attr, ok := licenses[id]; ok {
		return "licenses." + attr
	}
	return fmt.Sprintf("{ fullName = %s; }", quote(id))
}

// quote renders s as a Nix double quoted string
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
