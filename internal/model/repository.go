package model

import (
	"sort"

	"github.com/sevigo/countpkg/internal/store"
)

// Repository is the aggregate record for one discovered GitHub repository:
// its GitHub identity, the source/requirement files retrieved from it, and
// the external packages those files were found to reference, grounded on
// the original's Repository class (spec §3, §4.2).
type Repository struct {
	rec store.Record

	id          int64
	url         string
	contentsURL string
	retrieved   bool
	files       RepoFiles
	packages    []string
}

// NewRepository prepares an empty Repository keyed by full_name.
func NewRepository(name string) *Repository {
	return &Repository{rec: store.NewRecord(name), files: NewRepoFiles()}
}

// Record exposes the embedded dirty-tracking record for Store calls.
func (r *Repository) Record() *store.Record { return &r.rec }

// Name is the canonicalized "owner/repo" full name.
func (r *Repository) Name() string { return r.rec.Name }

func (r *Repository) ID() int64 { return r.id }

// SetID records the repository's GitHub numeric id.
func (r *Repository) SetID(id int64) {
	if r.id == id {
		return
	}
	r.id = id
	r.rec.SetChange("id")
}

func (r *Repository) URL() string { return r.url }

// SetURL records the repository's GitHub API URL.
func (r *Repository) SetURL(url string) {
	if r.url == url {
		return
	}
	r.url = url
	r.rec.SetChange("url")
}

func (r *Repository) ContentsURL() string { return r.contentsURL }

// SetContentsURL records the repository's contents-listing API template.
func (r *Repository) SetContentsURL(url string) {
	if r.contentsURL == url {
		return
	}
	r.contentsURL = url
	r.rec.SetChange("contents_url")
}

// Retrieved reports whether this repository's content walk has completed
// at least once (spec §4.2 "Retrieval state").
func (r *Repository) Retrieved() bool { return r.retrieved }

// SetRetrieved marks the repository's content walk as complete.
func (r *Repository) SetRetrieved(v bool) {
	if r.retrieved == v {
		return
	}
	r.retrieved = v
	r.rec.SetChange("retrieved")
}

// Files exposes the repository's classified file content for inspection.
func (r *Repository) Files() *RepoFiles { return &r.files }

// AddFile classifies and records one fetched file's content. Returns false
// if path is not a file the classifier accepts (spec §4.2 "File
// classification").
func (r *Repository) AddFile(path, content string) bool {
	if !r.files.Set(path, content) {
		return false
	}
	r.rec.SetChange("files")
	return true
}

// Packages returns the cached, already-computed package list (spec's
// QueryPackages operation): the result of the most recent FindPackages.
func (r *Repository) Packages() []string {
	return r.packages
}

// PackageRef is one external package referenced by this repository,
// together with enough detail for the aggregate Package record to be
// updated: which source files imported it, and (if named in a
// requirements file) the version constraint requested.
type PackageRef struct {
	Name       string
	Files      []string
	Version    string
	HasVersion bool
}

// FindPackageRefs recomputes, from the repository's current files, every
// external package referenced by any source or requirement file (minus
// the repository's own top-level package/module names), grounded on the
// original's Repository.find_packages. As a side effect it also updates
// the repository's own `packages` summary field, in lexicographically
// sorted order (Open Question (a)).
func (r *Repository) FindPackageRefs() []PackageRef {
	local := r.files.LocalPackages()
	refs := map[string]*PackageRef{}

	ref := func(name string) *PackageRef {
		if pr, ok := refs[name]; ok {
			return pr
		}
		pr := &PackageRef{Name: name}
		refs[name] = pr
		return pr
	}

	paths := make([]string, 0, len(r.files.PyFiles))
	for path := range r.files.PyFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		for name := range ExtractPyPackages(r.files.PyFiles[path]) {
			if name == "" || isLocal(local, name) {
				continue
			}
			pr := ref(name)
			pr.Files = append(pr.Files, path)
		}
	}

	if reqFile, ok := r.files.Requirement(); ok {
		versions := ExtractReqPackageVersions(reqFile.Content)
		names := make([]string, 0, len(versions))
		for name := range versions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if name == "" || isLocal(local, name) {
				continue
			}
			pr := ref(name)
			pr.Version = versions[name]
			pr.HasVersion = true
		}
	}

	packages := make([]string, 0, len(refs))
	for name := range refs {
		packages = append(packages, name)
	}
	sort.Strings(packages)

	out := make([]PackageRef, len(packages))
	for i, name := range packages {
		out[i] = *refs[name]
	}

	r.packages = packages
	r.rec.SetChange("packages")
	return out
}

func isLocal(local map[string]struct{}, name string) bool {
	_, ok := local[name]
	return ok
}

// FindPackages is the name-only convenience form of FindPackageRefs.
func (r *Repository) FindPackages() []string {
	refs := r.FindPackageRefs()
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}

// Prefix implements store.Fielder.
func (r *Repository) Prefix() string { return "repo" }

// FieldDefs implements store.Fielder.
func (r *Repository) FieldDefs() []store.FieldDef {
	return []store.FieldDef{
		{Name: "name", Kind: store.KindText},
		{Name: "id", Kind: store.KindNumber},
		{Name: "url", Kind: store.KindText},
		{Name: "contents_url", Kind: store.KindText},
		{Name: "retrieved", Kind: store.KindNumber},
		{Name: "files", Kind: store.KindJSON},
		{Name: "packages", Kind: store.KindJSON},
	}
}

// FieldValue implements store.Fielder.
func (r *Repository) FieldValue(field string) any {
	switch field {
	case "name":
		return r.rec.Name
	case "id":
		if r.id == 0 {
			return nil
		}
		return r.id
	case "url":
		if r.url == "" {
			return nil
		}
		return r.url
	case "contents_url":
		if r.contentsURL == "" {
			return nil
		}
		return r.contentsURL
	case "retrieved":
		return r.retrieved
	case "files":
		return r.files
	case "packages":
		if r.packages == nil {
			return []string{}
		}
		return r.packages
	}
	return nil
}

// SetFieldValue implements store.Fielder.
func (r *Repository) SetFieldValue(field string, value any) {
	switch field {
	case "id":
		if n, ok := value.(int64); ok {
			r.id = n
		}
	case "url":
		if s, ok := value.(string); ok {
			r.url = s
		}
	case "contents_url":
		if s, ok := value.(string); ok {
			r.contentsURL = s
		}
	case "retrieved":
		if n, ok := value.(int64); ok {
			r.retrieved = n != 0
		}
	case "files":
		r.files = decodeRepoFiles(value)
	case "packages":
		if arr, ok := value.([]any); ok {
			packages := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					packages = append(packages, s)
				}
			}
			r.packages = packages
		}
	}
}

func decodeRepoFiles(value any) RepoFiles {
	out := NewRepoFiles()
	m, ok := value.(map[string]any)
	if !ok {
		return out
	}
	if py, ok := m["pyfile"].(map[string]any); ok {
		for path, v := range py {
			if s, ok := v.(string); ok {
				out.PyFiles[path] = s
			}
		}
	}
	if req, ok := m["reqfile"].(map[string]any); ok {
		for path, v := range req {
			if s, ok := v.(string); ok {
				out.ReqFile[path] = s
			}
		}
	}
	return out
}
