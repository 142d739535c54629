package model

import (
	"sort"
	"strings"

	"github.com/sevigo/countpkg/internal/store"
)

// Package is the aggregate record for one external package name: the set
// of repositories that reference it, which file in each repository does
// so, and (when found in a requirements file) the version constraint
// requested, grounded on the original's Package class (spec §3).
type Package struct {
	rec store.Record

	repos   map[string]struct{}
	pyfiles map[string]map[string]struct{} // repo -> set of referencing file paths
	reqvers map[string]string              // repo -> requirement-line version constraint
}

// NewPackage prepares an empty Package keyed by name.
func NewPackage(name string) *Package {
	return &Package{
		rec:     store.NewRecord(name),
		repos:   map[string]struct{}{},
		pyfiles: map[string]map[string]struct{}{},
		reqvers: map[string]string{},
	}
}

// Record exposes the embedded dirty-tracking record for Store calls.
func (p *Package) Record() *store.Record { return &p.rec }

// Name is the canonicalized package name.
func (p *Package) Name() string { return p.rec.Name }

// AddRepo records that repo references this package, returning true if
// repo was not already recorded.
func (p *Package) AddRepo(repo string) bool {
	repo = normalizeRepoName(repo)
	if _, ok := p.repos[repo]; ok {
		return false
	}
	p.repos[repo] = struct{}{}
	p.rec.SetChange("repos", "num_repos")
	return true
}

// AddPyfile records that path, within repo, imports this package.
func (p *Package) AddPyfile(repo, path string) {
	repo = normalizeRepoName(repo)
	p.AddRepo(repo)
	files, ok := p.pyfiles[repo]
	if !ok {
		files = map[string]struct{}{}
		p.pyfiles[repo] = files
	}
	if _, ok := files[path]; ok {
		return
	}
	files[path] = struct{}{}
	p.rec.SetChange("pyfiles", "num_pyfiles")
}

// AddPkgver records the version constraint requirements.txt in repo asked
// for. Last write wins, matching RepoFiles' single-requirement-file rule.
func (p *Package) AddPkgver(repo, version string) {
	repo = normalizeRepoName(repo)
	p.AddRepo(repo)
	if existing, ok := p.reqvers[repo]; ok && existing == version {
		return
	}
	p.reqvers[repo] = version
	p.rec.SetChange("reqfiles", "num_reqfiles")
}

// HasReqfile reports whether repo's requirements file named this package.
func (p *Package) HasReqfile(repo string) bool {
	_, ok := p.reqvers[normalizeRepoName(repo)]
	return ok
}

// GetPkgver returns the version constraint recorded for repo, if any.
func (p *Package) GetPkgver(repo string) (string, bool) {
	v, ok := p.reqvers[normalizeRepoName(repo)]
	return v, ok
}

// Repos returns the lexicographically sorted list of referencing repos.
func (p *Package) Repos() []string {
	return sortedKeys(p.repos)
}

// NumRepos, NumPyfiles, NumReqfiles are the persisted summary counters.
func (p *Package) NumRepos() int    { return len(p.repos) }
func (p *Package) NumPyfiles() int  { return sumFileSets(p.pyfiles) }
func (p *Package) NumReqfiles() int { return len(p.reqvers) }

func sumFileSets(m map[string]map[string]struct{}) int {
	n := 0
	for _, files := range m {
		n += len(files)
	}
	return n
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Prefix implements store.Fielder.
func (p *Package) Prefix() string { return "pkg" }

// FieldDefs implements store.Fielder.
func (p *Package) FieldDefs() []store.FieldDef {
	return []store.FieldDef{
		{Name: "name", Kind: store.KindText},
		{Name: "repos", Kind: store.KindJSON},
		{Name: "pyfiles", Kind: store.KindJSON},
		{Name: "reqfiles", Kind: store.KindJSON},
		{Name: "num_repos", Kind: store.KindNumber},
		{Name: "num_pyfiles", Kind: store.KindNumber},
		{Name: "num_reqfiles", Kind: store.KindNumber},
	}
}

// FieldValue implements store.Fielder.
func (p *Package) FieldValue(field string) any {
	switch field {
	case "name":
		return p.rec.Name
	case "repos":
		return p.Repos()
	case "pyfiles":
		out := make(map[string][]string, len(p.pyfiles))
		for repo, files := range p.pyfiles {
			names := make([]string, 0, len(files))
			for f := range files {
				names = append(names, f)
			}
			sort.Strings(names)
			out[repo] = names
		}
		return out
	case "reqfiles":
		return p.reqvers
	case "num_repos":
		return int64(p.NumRepos())
	case "num_pyfiles":
		return int64(p.NumPyfiles())
	case "num_reqfiles":
		return int64(p.NumReqfiles())
	}
	return nil
}

// SetFieldValue implements store.Fielder.
func (p *Package) SetFieldValue(field string, value any) {
	switch field {
	case "repos":
		p.repos = toStringSet(value)
	case "pyfiles":
		out := map[string]map[string]struct{}{}
		if m, ok := value.(map[string]any); ok {
			for repo, v := range m {
				out[repo] = toStringSetFromAny(v)
			}
		}
		p.pyfiles = out
	case "reqfiles":
		out := map[string]string{}
		if m, ok := value.(map[string]any); ok {
			for repo, v := range m {
				if s, ok := v.(string); ok {
					out[repo] = s
				}
			}
		}
		p.reqvers = out
	}
}

func toStringSet(value any) map[string]struct{} {
	out := map[string]struct{}{}
	if arr, ok := value.([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out[s] = struct{}{}
			}
		}
	}
	return out
}

func toStringSetFromAny(value any) map[string]struct{} {
	out := map[string]struct{}{}
	if arr, ok := value.([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out[s] = struct{}{}
			}
		}
	}
	return out
}

func normalizeRepoName(repo string) string {
	return strings.ToLower(repo)
}
