// Package repomap resolves PO-relative path prefixes and filesystem paths
// to the repositories discovered in the workspace.
package repomap

import (
	"path/filepath"
	"sort"
	"strings"
)

// RootName is the reserved name of the top-level/default repository.
const RootName = "root"

// Repo is one discovered repository in the workspace.
type Repo struct {
	// Path is the absolute repository root.
	Path string

	// Name identifies the repository in PO layouts; "root" is reserved for
	// the top-level repository.
	Name string
}

// Map holds the ordered set of workspace repositories. It is read-only
// after construction.
type Map struct {
	repos  []Repo
	byName map[string]string
	byPath map[string]string

	// names sorted longest first, excluding "root", for prefix matching
	prefixNames []string
}

// New builds a Map from an ordered repository list. Paths are normalized
// to absolute form.
func New(repos []Repo) *Map {
	m := &Map{
		byName: make(map[string]string, len(repos)),
		byPath: make(map[string]string, len(repos)),
	}
	for _, r := range repos {
		abs, err := filepath.Abs(r.Path)
		if err != nil {
			abs = filepath.Clean(r.Path)
		}
		r.Path = abs
		m.repos = append(m.repos, r)
		m.byName[r.Name] = r.Path
		m.byPath[r.Path] = r.Name
		if r.Name != RootName {
			m.prefixNames = append(m.prefixNames, r.Name)
		}
	}
	sort.SliceStable(m.prefixNames, func(i, j int) bool {
		return len(m.prefixNames[i]) > len(m.prefixNames[j])
	})
	return m
}

// Repos returns the repositories in their original order.
func (m *Map) Repos() []Repo {
	return m.repos
}

// Path returns the absolute root of the named repository.
func (m *Map) Path(name string) (string, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// Name returns the name registered for an absolute repository root.
func (m *Map) Name(absPath string) (string, bool) {
	n, ok := m.byPath[filepath.Clean(absPath)]
	return n, ok
}

// SplitOverridePath splits an overrides-relative path into the target repo
// name and the destination path inside that repo. The longest repository
// name wins so nested names disambiguate; paths with no known prefix belong
// to the root repository.
func (m *Map) SplitOverridePath(relPath string) (repoName, destRel string) {
	sep := string(filepath.Separator)
	if after, ok := strings.CutPrefix(relPath, RootName+sep); ok {
		return RootName, after
	}
	for _, name := range m.prefixNames {
		if after, ok := strings.CutPrefix(relPath, name+sep); ok {
			return name, after
		}
		if relPath == name {
			return name, ""
		}
	}
	return RootName, relPath
}

// DirRepoName maps a commits/patches-relative file path to the owning repo
// name: the directory portion of the path, or "root" for files at the top
// level of the plugin directory.
func DirRepoName(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return RootName
	}
	return dir
}

// Owner identifies the repository that contains a filesystem path.
type Owner struct {
	// Root is the absolute repository root.
	Root string

	// Name is the repository name.
	Name string

	// Rel is the path inside the repository, "." for the root itself.
	// Empty when the path lies outside the owning repository and the root
	// repository was used as a last resort.
	Rel string
}

// ResolveOwner finds the repository containing target, preferring the
// longest (most deeply nested) repository root. Relative targets resolve
// against workspaceRoot. When no repository contains the path, the root
// repository is returned with an empty Rel; ok is false only when there is
// no root repository to fall back to.
func (m *Map) ResolveOwner(target, workspaceRoot string) (Owner, bool) {
	candidate := strings.TrimRight(target, string(filepath.Separator))
	if candidate == "" {
		candidate = target
	}
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workspaceRoot, candidate)
	}
	targetReal := realPath(candidate)

	var best Owner
	bestLen := -1
	for _, r := range m.repos {
		repoReal := realPath(r.Path)
		rel, err := filepath.Rel(repoReal, targetReal)
		if err != nil || !withinRel(rel) {
			continue
		}
		if len(repoReal) > bestLen {
			best = Owner{Root: r.Path, Name: r.Name, Rel: rel}
			bestLen = len(repoReal)
		}
	}
	if bestLen >= 0 {
		return best, true
	}

	rootPath, ok := m.byName[RootName]
	if !ok {
		return Owner{}, false
	}
	rootReal := realPath(rootPath)
	if rel, err := filepath.Rel(rootReal, targetReal); err == nil && withinRel(rel) {
		return Owner{Root: rootPath, Name: RootName, Rel: rel}, true
	}
	return Owner{Root: rootPath, Name: RootName}, true
}

// withinRel reports whether a filepath.Rel result stays inside its base.
func withinRel(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath resolves symlinks along the longest existing prefix of p. Unlike
// filepath.EvalSymlinks it tolerates components that do not exist yet.
func realPath(p string) string {
	p = filepath.Clean(p)
	suffix := ""
	for {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(resolved, suffix)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(p, suffix)
		}
		suffix = filepath.Join(filepath.Base(p), suffix)
		p = parent
	}
}
