package archive

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ralt/rmrf/internal/models"
	"github.com/sirupsen/logrus"
)

// List prints every archive with an item matching one of patterns, or
// every archive when patterns is empty. Relative patterns are also tried
// against cwd.
func (s *Store) List(ctx context.Context, patterns []string, cwd string) (int, error) {
	if _, err := os.Stat(s.Root); errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("No %s archives: %s does not exist", s.Kind, s.Root)
		return 0, nil
	}

	ids, err := s.ids()
	if err != nil {
		return 0, err
	}

	printed := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return printed, ctx.Err()
		default:
		}

		meta, raw, err := ReadMetadata(filepath.Join(s.Root, id))
		if err != nil {
			logrus.Debugf("Skipping %s: %v", id, err)
			continue
		}

		if len(patterns) > 0 && !matchAny(meta, patterns, cwd) {
			continue
		}

		if _, err := fmt.Fprintf(s.Out, "%s:\n%s", id, indent(raw)); err != nil {
			return printed, err
		}
		printed++
	}

	return printed, nil
}

func matchAny(meta *models.Metadata, patterns []string, cwd string) bool {
	for _, pattern := range patterns {
		for _, item := range meta.Items {
			if Match(pattern, item, filepath.Join(meta.Cwd, item), cwd) {
				return true
			}
		}
	}
	return false
}

// Match reports whether pattern selects an archived item. Patterns without
// glob metacharacters are left anchored prefixes of the item name or of
// its absolute path.
func Match(pattern, item, abs, cwd string) bool {
	candidates := []string{pattern}
	if !filepath.IsAbs(pattern) && cwd != "" {
		candidates = append(candidates, filepath.Join(cwd, pattern))
	}

	glob := strings.ContainsAny(pattern, "*?[{")

	for _, p := range candidates {
		if glob {
			if ok, _ := doublestar.Match(p, item); ok {
				return true
			}
			if ok, _ := doublestar.Match(p, abs); ok {
				return true
			}
			continue
		}
		if strings.HasPrefix(item, p) || strings.HasPrefix(abs, p) {
			return true
		}
	}
	return false
}

func indent(data []byte) string {
	var buf bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		buf.WriteString("  ")
		buf.WriteString(sc.Text())
		buf.WriteByte('\n')
	}
	return buf.String()
}
