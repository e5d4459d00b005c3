package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// IDLayout is the time layout of archive directory names
const IDLayout = "20060102T150405.000000"

const (
	lockFile      = ".rmrf.lock"
	lockRetry     = 100 * time.Millisecond
	maxIDAttempts = 1000
)

// ErrNotFound is returned when no archive matches an id
var ErrNotFound = errors.New("archive not found")

// Store is a directory of timestamped archives of one kind
type Store struct {
	Root    string
	Kind    string
	Sudo    bool
	Format  scanner.Format
	Runner  utils.Runner
	Scanner scanner.Scanner
	Out     io.Writer
	Now     func() time.Time

	usage func(path string) (diskStats, error)
}

// Archived describes a freshly written archive
type Archived struct {
	ID       string
	Dir      string
	Metadata *models.Metadata
}

// NewStore creates a store rooted at root, using the compression and sudo
// settings of cfg
func NewStore(root, kind string, cfg *models.Config, out io.Writer) (*Store, error) {
	format, ok := scanner.ParseFormat(cfg.Compression)
	if !ok {
		return nil, fmt.Errorf("unknown compression %q", cfg.Compression)
	}

	return &Store{
		Root:    filepath.Clean(root),
		Kind:    kind,
		Sudo:    cfg.Sudo,
		Format:  format,
		Runner:  utils.NewExecRunner(),
		Scanner: scanner.NewFileSystemScanner(),
		Out:     out,
		Now:     time.Now,
		usage:   diskUsage,
	}, nil
}

// lock takes the store lock, waiting until ctx is done
func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := utils.EnsureDir(s.Root); err != nil {
		return nil, err
	}

	fl := flock.New(filepath.Join(s.Root, lockFile))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, models.NewError(models.ErrLock, s.Root, err)
	}
	if !ok {
		return nil, models.NewError(models.ErrLock, s.Root, fmt.Errorf("store is locked"))
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			logrus.Warnf("Failed to unlock %s: %v", s.Root, err)
		}
	}, nil
}

// claimDir atomically creates a new archive directory named after the
// current time, bumping by a microsecond on collision
func (s *Store) claimDir() (string, string, error) {
	t := s.Now()
	for i := 0; i < maxIDAttempts; i++ {
		id := t.Format(IDLayout)
		dir := filepath.Join(s.Root, id)

		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", err
		}
		t = t.Add(time.Microsecond)
	}
	return "", "", fmt.Errorf("could not allocate an archive directory in %s", s.Root)
}

// ParseID returns the creation time encoded in an archive directory name.
// Plain unix timestamps are accepted as well.
func ParseID(id string) (time.Time, bool) {
	if t, err := time.ParseInLocation(IDLayout, id, time.Local); err == nil {
		return t, true
	}
	if secs, err := strconv.ParseInt(id, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}

// ids returns the archive directory names of the store in sorted order
func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Archive writes the items of group into a new archive directory
func (s *Store) Archive(ctx context.Context, group Group) (*Archived, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	id, dir, err := s.claimDir()
	if err != nil {
		return nil, err
	}

	archived, err := s.fill(ctx, id, dir, group)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logrus.Warnf("Failed to clean up %s: %v", dir, rmErr)
		}
		return nil, err
	}

	logrus.Infof("Archived %d item(s) from %s into %s", len(group.Items), group.Cwd, dir)
	return archived, nil
}

func (s *Store) fill(ctx context.Context, id, dir string, group Group) (*Archived, error) {
	archiveName := "archive" + s.Format.Extension()
	archivePath := filepath.Join(dir, archiveName)

	contents, err := writeArchive(ctx, s.Scanner, archivePath, s.Format, group)
	if err != nil {
		return nil, err
	}

	sums, err := utils.CalculateChecksums(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum archive: %w", err)
	}

	meta := &models.Metadata{
		Cwd:      group.Cwd,
		Items:    append([]string(nil), group.Items...),
		Kind:     s.Kind,
		Created:  s.Now().Format(time.RFC3339),
		Archive:  archiveName,
		SHA256:   sums.SHA256,
		Contents: contents,
	}

	if err := writeMetadata(dir, meta); err != nil {
		return nil, err
	}

	return &Archived{ID: id, Dir: dir, Metadata: meta}, nil
}

// resolve maps an exact id or a unique id prefix to an archive directory
func (s *Store) resolve(id string) (string, error) {
	ids, err := s.ids()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, candidate := range ids {
		if candidate == id {
			return candidate, nil
		}
		if id != "" && strings.HasPrefix(candidate, id) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s in %s: %w", id, s.Root, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s is ambiguous in %s: %v", id, s.Root, matches)
	}
}
