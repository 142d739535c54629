package model

import (
	"regexp"
	"strings"
)

// ExtractPyPackages returns the set of external package names referenced by
// retracted source content (spec §4.2 "Package-name extraction"). content is
// expected to already be the import-only, continuation-flattened form
// produced by retractSourceContent, one logical statement per line.
func ExtractPyPackages(content string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, line := range strings.Split(content, "\n") {
		for _, name := range pkgnamesFromStatement(line) {
			out[name] = struct{}{}
		}
	}
	return out
}

// pkgnamesFromStatement extracts the top-level package name(s) named by one
// "import ..." / "from ... import ..." statement.
//
//	import foo, bar.baz as b   -> foo, bar
//	from foo.bar import baz    -> foo
//	from . import sibling      -> (nothing: relative import)
//	import .relative           -> (nothing: relative import)
func pkgnamesFromStatement(stmt string) []string {
	var modules string
	switch {
	case startsWithWord(stmt, "from"):
		rest := strings.TrimSpace(stmt[len("from"):])
		if idx := indexOfWord(rest, "import"); idx >= 0 {
			modules = rest[:idx]
		} else {
			modules = rest
		}
	case startsWithWord(stmt, "import"):
		modules = strings.TrimSpace(stmt[len("import"):])
	default:
		return nil
	}

	var names []string
	for _, part := range strings.Split(modules, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, ".") {
			continue
		}
		if idx := indexOfWord(part, "as"); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		top := part
		if idx := strings.IndexByte(part, '.'); idx >= 0 {
			top = part[:idx]
		}
		top = strings.ToLower(strings.TrimSpace(top))
		if top != "" {
			names = append(names, top)
		}
	}
	return names
}

// indexOfWord finds the byte offset of keyword in s as a whole word
// (surrounded by whitespace, or string boundaries), or -1.
func indexOfWord(s, keyword string) int {
	for i := 0; i+len(keyword) <= len(s); i++ {
		if s[i:i+len(keyword)] != keyword {
			continue
		}
		before := i == 0 || s[i-1] == ' ' || s[i-1] == '\t'
		afterIdx := i + len(keyword)
		after := afterIdx == len(s) || s[afterIdx] == ' ' || s[afterIdx] == '\t'
		if before && after {
			return i
		}
	}
	return -1
}

// requirementStops are the characters PEP 508 allows after a distribution
// name: environment markers, extras, and version specifiers.
const requirementStops = "[;<>=!~ \t"

// ExtractReqPackages returns the set of external package names referenced
// by a retracted requirements.txt (spec §4.2 "Package-name extraction").
// content is expected to already be the comment-stripped, blank-line-free
// form produced by retractRequirementContent.
func ExtractReqPackages(content string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, line := range strings.Split(content, "\n") {
		if name, ok := pkgnameFromRequirement(line); ok {
			out[name] = struct{}{}
		}
	}
	return out
}

func pkgnameFromRequirement(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "-") {
		// option lines: -e ., -r other.txt, --hash=..., etc.
		return "", false
	}
	stop := strings.IndexAny(line, requirementStops)
	name := line
	if stop >= 0 {
		name = line[:stop]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	return name, true
}

// requirementLineRE captures a PEP 508 distribution name, its optional
// extras, and its version specifier (if any), grounded on the original's
// RepoFiles._find_packages[_reqfile] regex (no lookaround needed here).
var requirementLineRE = regexp.MustCompile(`^(\w[\w-]*)(?:\s*\[[\w\s,-]+\])?\s*([!~<=>]{1,2}\s*\d+(?:\.\d+)*(?:\s*,\s*[!~<=>]{1,2}\s*\d+(?:\.\d+)*)*)?`)

// ExtractReqPackageVersions returns, for each package named in a retracted
// requirements.txt, the raw version-constraint string recorded for it (or
// "" if the line named no constraint), grounded on parse_reqfile.
func ExtractReqPackageVersions(content string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementLineRE.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(m[1]))
		out[name] = strings.TrimSpace(m[2])
	}
	return out
}
