package release

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/signer"
	"github.com/ralt/rmrf/internal/utils"
)

func TestReleaseURL(t *testing.T) {
	rel := Release{Version: "0.2.1", OS: "darwin"}

	asset, err := rel.AssetName()
	require.NoError(t, err)
	assert.Equal(t, "rmrf-v0.2.1-macos.tar.gz", asset)

	url, err := rel.URL()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/scottidler/rmrf/releases/download/v0.2.1/rmrf-v0.2.1-macos.tar.gz", url)

	rel = Release{Owner: "me", Repo: "fork", Version: "v1.0.0", OS: "linux", BaseURL: "http://mirror/"}
	url, err = rel.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://mirror/me/fork/releases/download/v1.0.0/rmrf-v1.0.0-linux.tar.gz", url)

	_, err = Release{Version: "1.0.0", OS: "windows"}.AssetName()
	assert.Error(t, err)
}

func TestReleaseValidate(t *testing.T) {
	assert.Error(t, Release{OS: "linux", SHA256: "abc"}.Validate())
	assert.Error(t, Release{OS: "linux", Version: "1.0.0"}.Validate())
	assert.NoError(t, Release{OS: "linux", Version: "1.0.0", SHA256: "abc"}.Validate())
}

func TestSplitSearchPath(t *testing.T) {
	dirs := SplitSearchPath("$ORIGIN/../lib::/opt/lib:${ORIGIN}", "/app/bin")
	assert.Equal(t, []string{"/app/bin/../lib", "/opt/lib", "/app/bin"}, dirs)
}

func buildAsset(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw, err := utils.NewCompressor(scanner.FormatGzip, &buf)
	require.NoError(t, err)

	tw := tar.NewWriter(zw)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Unix(1700000000, 0),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func testFetcher() *Fetcher {
	return NewFetcher().WithBackoff(3, time.Millisecond, 5*time.Millisecond)
}

type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(ctx context.Context, sudo bool, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, nil
}

func serveAsset(t *testing.T, asset []byte, sig []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch {
		case strings.HasSuffix(r.URL.Path, ".tar.gz"):
			w.Write(asset)
		case strings.HasSuffix(r.URL.Path, ".tar.gz.asc") && sig != nil:
			w.Write(sig)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestInstall(t *testing.T) {
	asset := buildAsset(t, map[string]string{"rmrf": "#!/bin/sh\necho rmrf\n"})
	srv, _ := serveAsset(t, asset, nil)

	out := t.TempDir()
	runner := &recordingRunner{}
	rel := Release{Version: "0.3.0", OS: "linux", SHA256: digest(asset), BaseURL: srv.URL}

	bin, err := Install(context.Background(), rel, InstallOptions{
		OutDir:      out,
		Fetcher:     testFetcher(),
		Runner:      runner,
		Interpreter: "/nix/store/glibc/lib/ld-linux-x86-64.so.2",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "bin", "rmrf"), bin)

	info, err := os.Stat(bin)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"patchelf", "--set-interpreter", "/nix/store/glibc/lib/ld-linux-x86-64.so.2", bin}, runner.calls[0])
}

func TestInstallAcceptsSRIHash(t *testing.T) {
	asset := buildAsset(t, map[string]string{"rmrf": "binary"})
	srv, _ := serveAsset(t, asset, nil)

	sri, err := utils.SRIHash(digest(asset))
	require.NoError(t, err)

	rel := Release{Version: "0.3.0", OS: "linux", SHA256: sri, BaseURL: srv.URL}
	_, err = Install(context.Background(), rel, InstallOptions{OutDir: t.TempDir(), Fetcher: testFetcher()})
	assert.NoError(t, err)
}

func TestInstallChecksumMismatch(t *testing.T) {
	asset := buildAsset(t, map[string]string{"rmrf": "binary"})
	srv, hits := serveAsset(t, asset, nil)

	out := t.TempDir()
	rel := Release{Version: "0.3.0", OS: "linux", SHA256: digest([]byte("other")), BaseURL: srv.URL}

	_, err := Install(context.Background(), rel, InstallOptions{OutDir: out, Fetcher: testFetcher()})
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrChecksum), "got %v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "checksum mismatch must not be retried")

	_, err = os.Stat(filepath.Join(out, "bin", "rmrf"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallMissingBinary(t *testing.T) {
	asset := buildAsset(t, map[string]string{"README.md": "no binary here"})
	srv, _ := serveAsset(t, asset, nil)

	rel := Release{Version: "0.3.0", OS: "linux", SHA256: digest(asset), BaseURL: srv.URL}
	_, err := Install(context.Background(), rel, InstallOptions{OutDir: t.TempDir(), Fetcher: testFetcher()})
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrInstall), "got %v", err)
}

func TestInstallSignature(t *testing.T) {
	entity, err := openpgp.NewEntity("rmrf release", "", "release@example.com", nil)
	require.NoError(t, err)

	asset := buildAsset(t, map[string]string{"rmrf": "binary"})
	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(asset), nil))

	srv, _ := serveAsset(t, asset, sig.Bytes())
	rel := Release{Version: "0.3.0", OS: "linux", SHA256: digest(asset), BaseURL: srv.URL}

	trusted := signer.NewGPGVerifierFromEntities(openpgp.EntityList{entity})
	_, err = Install(context.Background(), rel, InstallOptions{OutDir: t.TempDir(), Fetcher: testFetcher(), Verifier: trusted})
	require.NoError(t, err)

	other, err := openpgp.NewEntity("someone else", "", "other@example.com", nil)
	require.NoError(t, err)
	untrusted := signer.NewGPGVerifierFromEntities(openpgp.EntityList{other})
	_, err = Install(context.Background(), rel, InstallOptions{OutDir: t.TempDir(), Fetcher: testFetcher(), Verifier: untrusted})
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrSignature), "got %v", err)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "asset")
	n, err := testFetcher().Fetch(context.Background(), srv.URL+"/asset", path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL+"/missing", filepath.Join(t.TempDir(), "asset"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCheckLinkageNonELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	l, err := CheckLinkage(path, nil)
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestInspectELFRunningBinary(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	l, isELF, err := InspectELF(exe)
	require.NoError(t, err)
	if !isELF {
		t.Skip("test binary is not ELF on this platform")
	}

	if l.Interpreter != "" {
		_, err := os.Stat(l.Interpreter)
		assert.NoError(t, err, "interpreter of a running binary must exist")
	}
}

func withDefaultLibDirs(t *testing.T, dirs ...string) {
	t.Helper()
	saved := DefaultLibDirs
	DefaultLibDirs = dirs
	t.Cleanup(func() { DefaultLibDirs = saved })
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
}

func TestResolveSearchesExtraDirsAfterDefaults(t *testing.T) {
	system := t.TempDir()
	extra := t.TempDir()
	withDefaultLibDirs(t, system)

	touch(t, system, "libc.so.6")
	touch(t, extra, "libfoo.so.1")

	l := &Linkage{Needed: []string{"libc.so.6", "libfoo.so.1"}}
	require.NoError(t, l.Resolve([]string{extra}))
	assert.Empty(t, l.Missing)

	// libfoo is only reachable through the extra dir
	l = &Linkage{Needed: []string{"libfoo.so.1"}}
	err := l.Resolve(nil)
	require.Error(t, err)
	assert.Equal(t, []string{"libfoo.so.1"}, l.Missing)
}

func TestResolveUsesRPathFirst(t *testing.T) {
	withDefaultLibDirs(t, t.TempDir())
	rpath := t.TempDir()
	touch(t, rpath, "libbar.so")

	l := &Linkage{Needed: []string{"libbar.so"}, RPath: []string{rpath}}
	require.NoError(t, l.Resolve(nil))
}

func TestResolveReportsUnresolved(t *testing.T) {
	withDefaultLibDirs(t, t.TempDir())
	extra := t.TempDir()
	touch(t, extra, "libfoo.so.1")

	l := &Linkage{
		Interpreter: filepath.Join(t.TempDir(), "ld-missing.so"),
		Needed:      []string{"libfoo.so.1", "libgone.so.2"},
	}
	err := l.Resolve([]string{extra})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved")
	assert.Contains(t, err.Error(), "libgone.so.2")
	assert.Equal(t, []string{l.Interpreter, "libgone.so.2"}, l.Missing)
}
