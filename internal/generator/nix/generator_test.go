package nix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/rmrf/internal/models"
)

const helloSHA256 = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

func testSpec() *models.PackageSpec {
	return &models.PackageSpec{
		Name:        "rmrf",
		Version:     "0.3.0",
		Description: `tool for staging "rm -rf" or bkup files`,
		Homepage:    "https://github.com/scottidler/rmrf",
		License:     "MIT",
		Maintainers: []string{"scottidler"},
		Assets: []models.Asset{{
			Platform: "linux",
			URL:      "https://github.com/scottidler/rmrf/releases/download/v0.3.0/rmrf-v0.3.0-linux.tar.gz",
			SHA256:   helloSHA256,
		}},
	}
}

func TestGenerate(t *testing.T) {
	var out strings.Builder
	require.NoError(t, NewGenerator().Generate(&out, testSpec()))
	drv := out.String()

	for _, want := range []string{
		`pname = "rmrf";`,
		`version = "0.3.0";`,
		`url = "https://github.com/scottidler/rmrf/releases/download/v0.3.0/rmrf-v0.3.0-linux.tar.gz";`,
		`hash = "sha256-WJG1tSLV3whtD/CxEPvZ0hu0/HFjrzTQgoai6Eb2vgM=";`,
		`nativeBuildInputs = [ autoPatchelfHook ];`,
		`stdenv.cc.cc.lib`,
		`sourceRoot = ".";`,
		`mkdir -p $out/bin`,
		`tar -xzf $src -C $out/bin`,
		`description = "tool for staging \"rm -rf\" or bkup files";`,
		`license = licenses.mit;`,
		`platforms = [ "x86_64-linux" ];`,
		`maintainers = with maintainers; [ scottidler ];`,
	} {
		assert.Contains(t, drv, want)
	}
}

func TestGenerateAcceptsSRIHash(t *testing.T) {
	spec := testSpec()
	spec.Assets[0].SHA256 = "sha256-WJG1tSLV3whtD/CxEPvZ0hu0/HFjrzTQgoai6Eb2vgM="

	var out strings.Builder
	require.NoError(t, NewGenerator().Generate(&out, spec))
	assert.Contains(t, out.String(), `hash = "sha256-WJG1tSLV3whtD/CxEPvZ0hu0/HFjrzTQgoai6Eb2vgM=";`)
}

func TestGenerateRequiresLinuxAsset(t *testing.T) {
	spec := testSpec()
	spec.Assets[0].Platform = "macos"

	var out strings.Builder
	assert.Error(t, NewGenerator().Generate(&out, spec))
	assert.Empty(t, out.String())
}

func TestGenerateRejectsBadHash(t *testing.T) {
	spec := testSpec()
	spec.Assets[0].SHA256 = "not-a-hash"
	assert.Error(t, NewGenerator().Validate(spec))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a \${b} \"c\" \\d"`, quote(`a ${b} "c" \d`))
}

func TestLicenseFallback(t *testing.T) {
	assert.Equal(t, "licenses.asl20", license("Apache-2.0"))
	assert.Equal(t, `{ fullName = "Custom"; }`, license("Custom"))
}
