package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/rmrf/internal/models"
)

type env struct {
	cfg  string
	rmrf string
	bkup string
	work string
}

func setup(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		cfg:  filepath.Join(root, "rmrf.cfg"),
		rmrf: filepath.Join(root, "store", "rmrf"),
		bkup: filepath.Join(root, "store", "bkup"),
		work: filepath.Join(root, "work"),
	}

	cfg := fmt.Sprintf("[DEFAULT]\nrmrf_path = %s\nbkup_path = %s\nsudo = no\nkeep = 21\nthreshold = 0\n", e.rmrf, e.bkup)
	if err := os.WriteFile(e.cfg, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.MkdirAll(e.work, 0755); err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	return e
}

func (e *env) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.work, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func (e *env) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func archiveIDs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("Failed to read %s: %v", root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids
}

func TestDefaultActionRemoves(t *testing.T) {
	e := setup(t)
	target := e.file(t, "app.log", "log line\n")

	if _, err := e.run(target, "-c", e.cfg); err != nil {
		t.Fatalf("rmrf failed: %v", err)
	}

	if _, err := os.Lstat(target); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed", target)
	}

	ids := archiveIDs(t, e.rmrf)
	if len(ids) != 1 {
		t.Fatalf("Expected 1 archive, got %v", ids)
	}

	meta, err := os.ReadFile(filepath.Join(e.rmrf, ids[0], "metadata.yml"))
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if !strings.Contains(string(meta), "cwd: "+e.work) {
		t.Errorf("Metadata does not record cwd:\n%s", meta)
	}
}

func TestRmrfGroupsByParent(t *testing.T) {
	e := setup(t)
	a := e.file(t, "a/one.txt", "1")
	b := e.file(t, "b/two.txt", "2")
	c := e.file(t, "a/three.txt", "3")

	if _, err := e.run("rmrf", "-c", e.cfg, a, b, c); err != nil {
		t.Fatalf("rmrf failed: %v", err)
	}

	if ids := archiveIDs(t, e.rmrf); len(ids) != 2 {
		t.Errorf("Expected 2 archives (one per parent), got %v", ids)
	}
}

func TestBkupKeepsOriginals(t *testing.T) {
	e := setup(t)
	target := e.file(t, "notes.md", "keep me")

	if _, err := e.run("bkup", "-c", e.cfg, target); err != nil {
		t.Fatalf("bkup failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("Expected %s to be kept: %v", target, err)
	}
	if ids := archiveIDs(t, e.bkup); len(ids) != 1 {
		t.Errorf("Expected 1 bkup archive, got %v", ids)
	}
	if ids := archiveIDs(t, e.rmrf); len(ids) != 0 {
		t.Errorf("Expected no rmrf archive, got %v", ids)
	}

	out, err := e.run("ls-bkup", "-c", e.cfg, "notes")
	if err != nil {
		t.Fatalf("ls-bkup failed: %v", err)
	}
	if !strings.Contains(out, "- notes.md") {
		t.Errorf("Expected listing to include notes.md:\n%s", out)
	}

	out, err = e.run("ls-bkup", "-c", e.cfg, "nomatch")
	if err != nil {
		t.Fatalf("ls-bkup failed: %v", err)
	}
	if out != "" {
		t.Errorf("Expected empty listing, got:\n%s", out)
	}
}

func TestBkupRmrfThenRecover(t *testing.T) {
	e := setup(t)
	target := e.file(t, "config.yml", "a: 1\n")

	if _, err := e.run("bkup-rmrf", "-c", e.cfg, target); err != nil {
		t.Fatalf("bkup-rmrf failed: %v", err)
	}
	if _, err := os.Lstat(target); !os.IsNotExist(err) {
		t.Fatalf("Expected %s to be removed", target)
	}

	ids := archiveIDs(t, e.bkup)
	if len(ids) != 1 {
		t.Fatalf("Expected 1 bkup archive, got %v", ids)
	}

	if _, err := e.run("rcvr", "-c", e.cfg, ids[0]); err != nil {
		t.Fatalf("rcvr failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Expected %s to be recovered: %v", target, err)
	}
	if string(data) != "a: 1\n" {
		t.Errorf("Recovered content = %q", data)
	}
	if ids := archiveIDs(t, e.bkup); len(ids) != 1 {
		t.Errorf("Expected bkup archive to be kept, got %v", ids)
	}
}

func TestRecoverRmrf(t *testing.T) {
	e := setup(t)
	target := e.file(t, "project/README.md", "# project\n")
	dir := filepath.Dir(target)

	if _, err := e.run("rmrf", "-c", e.cfg, dir); err != nil {
		t.Fatalf("rmrf failed: %v", err)
	}
	ids := archiveIDs(t, e.rmrf)
	if len(ids) != 1 {
		t.Fatalf("Expected 1 archive, got %v", ids)
	}

	out, err := e.run("ls-rmrf", "-c", e.cfg)
	if err != nil {
		t.Fatalf("ls-rmrf failed: %v", err)
	}
	if !strings.HasPrefix(out, ids[0]+":\n") {
		t.Errorf("Expected listing to start with %s:, got:\n%s", ids[0], out)
	}

	if _, err := e.run("rcvr", "-c", e.cfg, ids[0]); err != nil {
		t.Fatalf("rcvr failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("Expected %s to be recovered: %v", target, err)
	}
	if ids := archiveIDs(t, e.rmrf); len(ids) != 0 {
		t.Errorf("Expected rmrf archive to be deleted after recovery, got %v", ids)
	}
}

func TestRecoverUnknownID(t *testing.T) {
	e := setup(t)
	_, err := e.run("rcvr", "-c", e.cfg, "19990101T000000")
	if err == nil {
		t.Fatal("Expected error for unknown id")
	}
	if !models.IsType(err, models.ErrRecover) {
		t.Errorf("Expected recover error, got %v", err)
	}
}

func TestMissingTargetIsSkipped(t *testing.T) {
	e := setup(t)
	if _, err := e.run("rmrf", "-c", e.cfg, filepath.Join(e.work, "nope")); err != nil {
		t.Fatalf("rmrf of a missing target failed: %v", err)
	}
	if ids := archiveIDs(t, e.rmrf); len(ids) != 0 {
		t.Errorf("Expected no archive, got %v", ids)
	}
}

func TestRefusesStoreTargets(t *testing.T) {
	e := setup(t)
	if err := os.MkdirAll(e.bkup, 0755); err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	_, err := e.run("rmrf", "-c", e.cfg, e.bkup)
	if !models.IsType(err, models.ErrArchive) {
		t.Fatalf("Expected archive error, got %v", err)
	}
	if _, err := os.Stat(e.bkup); err != nil {
		t.Errorf("Store must survive: %v", err)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	e := setup(t)
	_, err := e.run("ls-rmrf", "-c", filepath.Join(e.work, "missing.cfg"))
	if !models.IsType(err, models.ErrConfig) {
		t.Fatalf("Expected config error, got %v", err)
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	e := setup(t)
	out, err := e.run()
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !strings.Contains(out, "bkup-rmrf") {
		t.Errorf("Expected help output, got:\n%s", out)
	}
}

const linuxSum = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

func TestPkgNix(t *testing.T) {
	e := setup(t)
	out, err := e.run("pkg", "nix", "--version", "0.3.0", "--sha256-linux", linuxSum, "--maintainer", "scottidler")
	if err != nil {
		t.Fatalf("pkg nix failed: %v", err)
	}

	for _, want := range []string{
		`url = "https://github.com/scottidler/rmrf/releases/download/v0.3.0/rmrf-v0.3.0-linux.tar.gz";`,
		`hash = "sha256-WJG1tSLV3whtD/CxEPvZ0hu0/HFjrzTQgoai6Eb2vgM=";`,
		`homepage = "https://github.com/scottidler/rmrf";`,
		`license = licenses.mit;`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Derivation missing %q:\n%s", want, out)
		}
	}
}

func TestPkgNixRequiresLinuxHash(t *testing.T) {
	e := setup(t)
	_, err := e.run("pkg", "nix", "--version", "0.3.0", "--sha256-macos", linuxSum)
	if !models.IsType(err, models.ErrGenerate) {
		t.Fatalf("Expected generate error, got %v", err)
	}
}

func TestPkgBrewInheritsFormula(t *testing.T) {
	e := setup(t)
	formula := filepath.Join(e.work, "rmrf.rb")

	if _, err := e.run("pkg", "brew", "--version", "0.2.0", "--sha256-macos", linuxSum,
		"--description", "custom description", "--license", "Apache-2.0", "-o", formula); err != nil {
		t.Fatalf("pkg brew failed: %v", err)
	}

	out, err := e.run("pkg", "brew", "--version", "0.3.0", "--sha256-macos", linuxSum, "--from", formula)
	if err != nil {
		t.Fatalf("pkg brew --from failed: %v", err)
	}
	for _, want := range []string{`desc "custom description"`, `license "Apache-2.0"`, `version "0.3.0"`, "rmrf-v0.3.0-macos.tar.gz"} {
		if !strings.Contains(out, want) {
			t.Errorf("Formula missing %q:\n%s", want, out)
		}
	}
}

func TestPkgBrewRenamedPackageInstallsRmrf(t *testing.T) {
	e := setup(t)
	out, err := e.run("pkg", "brew", "--name", "rmrf-nightly", "--version", "0.3.0", "--sha256-linux", linuxSum)
	if err != nil {
		t.Fatalf("pkg brew failed: %v", err)
	}
	for _, want := range []string{"class RmrfNightly < Formula", `bin.install "rmrf"`, `system "#{bin}/rmrf", "--help"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Formula missing %q:\n%s", want, out)
		}
	}
}
