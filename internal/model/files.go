// Package model implements the domain records (spec §3) and the file
// classifier/parser (spec §4.2), grounded on the original's
// app/models.py and its RepoFiles/HashType classes.
package model

import (
	"path"
	"strings"
)

// sourceExt is the target-language's source file extension (spec §4.2).
const sourceExt = ".py"

// requirementFilename is the exact (case-insensitive) basename a
// requirement file must match (Open Question (c): strict equality).
const requirementFilename = "requirements.txt"

// File is one (path, content) pair, content already reduced to
// significant lines (spec §4.2 "Content retraction").
type File struct {
	Path    string
	Content string
}

// RepoFiles is the value object embedded in Repository: a map of source
// files and at most one requirement file.
type RepoFiles struct {
	PyFiles map[string]string `json:"pyfile"`
	ReqFile map[string]string `json:"reqfile"`
}

// NewRepoFiles returns an empty RepoFiles.
func NewRepoFiles() RepoFiles {
	return RepoFiles{PyFiles: map[string]string{}, ReqFile: map[string]string{}}
}

// IsPyFile reports whether path is a source file by extension.
func IsPyFile(p string) bool {
	return strings.EqualFold(path.Ext(p), sourceExt)
}

// IsReqFile reports whether path is a requirement file by exact basename.
func IsReqFile(p string) bool {
	return strings.EqualFold(path.Base(p), requirementFilename)
}

// ExpectsFile reports whether the classifier accepts path at all.
func ExpectsFile(p string) bool {
	return IsPyFile(p) || IsReqFile(p)
}

// Set adds or replaces a file's content, retracting it to significant
// lines first. For requirement files, the map is reset to a single
// entry (spec §3 RepoFiles invariant: at most one per repo, last write
// wins). Returns false if path is not classified.
func (f *RepoFiles) Set(path, content string) bool {
	switch {
	case IsPyFile(path):
		if f.PyFiles == nil {
			f.PyFiles = map[string]string{}
		}
		f.PyFiles[path] = retractSourceContent(content)
		return true
	case IsReqFile(path):
		f.ReqFile = map[string]string{path: retractRequirementContent(content)}
		return true
	default:
		return false
	}
}

// Get returns the stored content for path, or ("", false).
func (f *RepoFiles) Get(path string) (string, bool) {
	if v, ok := f.PyFiles[path]; ok {
		return v, true
	}
	if v, ok := f.ReqFile[path]; ok {
		return v, true
	}
	return "", false
}

// Contains reports whether path has been recorded.
func (f *RepoFiles) Contains(path string) bool {
	_, ok := f.Get(path)
	return ok
}

// Requirement returns the single requirement file, if any.
func (f *RepoFiles) Requirement() (File, bool) {
	for p, c := range f.ReqFile {
		return File{Path: p, Content: c}, true
	}
	return File{}, false
}

// LocalPackages computes the set of package names the repository's own
// source layout implies (spec §4.2 "Local-package suppression").
func (f *RepoFiles) LocalPackages() map[string]struct{} {
	out := map[string]struct{}{}
	for p := range f.PyFiles {
		out[pkgnameFromPath(p)] = struct{}{}
	}
	return out
}

func pkgnameFromPath(p string) string {
	dir, base := path.Dir(p), path.Base(p)
	var name string
	if dir == "." || dir == "/" || dir == "" {
		if IsPyFile(base) {
			name = strings.TrimSuffix(base, path.Ext(base))
		} else {
			name = base
		}
	} else {
		parts := strings.Split(dir, "/")
		name = parts[0]
		if name == "" && len(parts) > 1 {
			name = parts[1]
		}
	}
	return strings.ToLower(name)
}

// retractSourceContent keeps only import-bearing logical statements,
// honoring backslash line continuations (spec §4.2 "Content retraction").
func retractSourceContent(content string) string {
	stmts := importStatements(content)
	lines := make([]string, 0, len(stmts))
	for _, s := range stmts {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n")
}

// importStatements scans content line by line and returns each logical
// "import ..." / "from ..." statement as a single flattened line,
// rejoining backslash-continued physical lines with a space. Go's RE2
// engine has no lookbehind, so this is done by hand rather than with the
// original's lookbehind-based regex; collapsing continuations up front
// also means every statement is self-contained, so later passes over the
// stored content can split on plain "\n" without re-deriving boundaries.
func importStatements(content string) []string {
	var out []string
	rawLines := strings.Split(content, "\n")
	var current strings.Builder
	inStmt := false

	flush := func() {
		if inStmt {
			out = append(out, current.String())
			current.Reset()
			inStmt = false
		}
	}

	for _, raw := range rawLines {
		if !inStmt {
			trimmed := strings.TrimLeft(raw, " \t")
			if !hasImportKeyword(trimmed) {
				continue
			}
			inStmt = true
			current.WriteString(trimmed)
		} else {
			current.WriteByte(' ')
			current.WriteString(strings.TrimSpace(raw))
		}

		if strings.HasSuffix(raw, `\`) {
			trimContinuation(&current)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func trimContinuation(b *strings.Builder) {
	s := strings.TrimSuffix(b.String(), `\`)
	b.Reset()
	b.WriteString(strings.TrimRight(s, " \t"))
}

func hasImportKeyword(trimmed string) bool {
	return startsWithWord(trimmed, "import") || startsWithWord(trimmed, "from")
}

func startsWithWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	rest := s[len(word):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// retractRequirementContent keeps non-comment, non-blank lines trimmed
// of trailing inline comments.
func retractRequirementContent(content string) string {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
