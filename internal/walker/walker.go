// Package walker implements the content-walking component of spec §4.3
// (C5): breadth-first traversal of a repository's directory tree, skipping
// excluded paths, grounded on the original's modules/github/client.py
// ContentRetriever. Search-result paging is not done here; it lives in
// ghclient.SearchResult (HasNext/NextPage).
package walker

import (
	"context"
	"regexp"
	"strings"

	"github.com/sevigo/countpkg/internal/ghclient"
)

// venvRE, pyRuntimeRE, and dotfileRE classify one path segment as
// excluded (spec §4.3 "Exclusion pattern", Open Question (b): matching is
// case-insensitive). Go's RE2 has no lookaround, so the original's single
// `(?:^|/)...(?=/|$)` regex is applied per path segment instead of to the
// whole path.
var (
	venvRE      = regexp.MustCompile(`(?i)^\w*venv$`)
	pyRuntimeRE = regexp.MustCompile(`(?i)^(python|pip)(-?\d+(\.[0-9a-z]+)*)?$`)
	dotfileRE   = regexp.MustCompile(`^\.\w+$`)
)

var excludedNames = map[string]struct{}{
	"site-packages": {},
	"__pycache__":   {},
	"static":        {},
}

// IsExcluded reports whether any segment of path matches the exclusion
// pattern: virtualenv directories, installed packages, caches, static
// asset directories, dotfiles, and Python/pip runtime directories.
func IsExcluded(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		lower := strings.ToLower(seg)
		if _, ok := excludedNames[lower]; ok {
			return true
		}
		if venvRE.MatchString(seg) || pyRuntimeRE.MatchString(seg) || dotfileRE.MatchString(seg) {
			return true
		}
	}
	return false
}

// File is one retrieved, decoded source or requirement file.
type File struct {
	Path    string
	Content string
}

// Walker performs the breadth-first directory walk described in spec
// §4.3: starting at a repository's root, it descends into every
// non-excluded directory and yields every file entry it finds.
type Walker struct {
	client *ghclient.Client
}

// New builds a Walker over client.
func New(client *ghclient.Client) *Walker {
	return &Walker{client: client}
}

// Walk breadth-first traverses owner/repo starting at its root, invoking
// visit for every file entry encountered (excluded directories are never
// descended into, and never passed to visit).
func (w *Walker) Walk(ctx context.Context, owner, repo string, visit func(ghclient.ContentEntry) error) error {
	traversed := map[string]struct{}{}
	folders := []string{""}

	for len(folders) > 0 {
		folder := folders[0]
		folders = folders[1:]

		if _, seen := traversed[folder]; seen {
			continue
		}
		traversed[folder] = struct{}{}

		entries, err := w.client.ListDirectory(ctx, owner, repo, folder)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.IsFile() {
				if err := visit(e); err != nil {
					return err
				}
				continue
			}
			if IsExcluded(e.Path) {
				continue
			}
			if _, seen := traversed[e.Path]; !seen {
				folders = append(folders, e.Path)
			}
		}
	}
	return nil
}

// FetchContent retrieves and decodes one file entry's content.
func (w *Walker) FetchContent(ctx context.Context, owner, repo string, entry ghclient.ContentEntry) (string, error) {
	return w.client.FileContent(ctx, owner, repo, entry.Path, entry.DownloadURL)
}
