package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
)

// Group is a set of targets sharing a parent directory. Each group
// becomes one archive whose entries are relative to Cwd.
type Group struct {
	Cwd   string
	Items []string
}

// Paths returns the absolute paths of the group items
func (g Group) Paths() []string {
	paths := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		paths = append(paths, filepath.Join(g.Cwd, item))
	}
	return paths
}

// GroupTargets resolves targets against cwd and groups them by parent
// directory, in order of first appearance. Targets that do not exist are
// returned separately. Targets nested inside another target are dropped.
func GroupTargets(targets []string, cwd string) ([]Group, []string, error) {
	var resolved []string
	var missing []string
	seen := make(map[string]bool)

	for _, target := range targets {
		if target == "" {
			continue
		}

		p := target
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.Clean(p)

		if p == filepath.Dir(p) {
			return nil, nil, fmt.Errorf("refusing to archive %s", p)
		}

		if seen[p] {
			continue
		}
		seen[p] = true

		if _, err := os.Lstat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, target)
				continue
			}
			return nil, nil, fmt.Errorf("cannot stat %s: %w", target, err)
		}

		resolved = append(resolved, p)
	}

	var groups []Group
	index := make(map[string]int)

	for _, p := range resolved {
		if nestedIn(p, resolved) {
			logrus.Debugf("Skipping %s, already covered by a parent target", p)
			continue
		}

		parent := filepath.Dir(p)
		i, ok := index[parent]
		if !ok {
			i = len(groups)
			index[parent] = i
			groups = append(groups, Group{Cwd: parent})
		}
		groups[i].Items = append(groups[i].Items, filepath.Base(p))
	}

	return groups, missing, nil
}

func nestedIn(p string, all []string) bool {
	for _, other := range all {
		if other != p && utils.IsWithin(p, other) {
			return true
		}
	}
	return false
}

// Guard rejects groups that would archive a store root, anything
// containing one, or anything inside one
func Guard(groups []Group, roots ...string) error {
	for _, g := range groups {
		for _, p := range g.Paths() {
			for _, root := range roots {
				if root == "" {
					continue
				}
				root = filepath.Clean(root)
				if utils.IsWithin(root, p) || utils.IsWithin(p, root) {
					return fmt.Errorf("refusing to archive %s: overlaps archive store %s", p, root)
				}
			}
		}
	}
	return nil
}
