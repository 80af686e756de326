package restyle

import (
	"path"
	"strings"
)

// PathFilter decides which touched paths are handed to the transform tool.
// A path is eligible when it matches one of the source patterns, is not under
// any excluded root, and is not one of the listed generated files.
type PathFilter struct {
	// Patterns are matched with [path.Match]. A pattern without a slash is
	// matched against the base name, one with a slash against the whole
	// repository relative path.
	Patterns []string `yaml:"patterns"`
	// ExcludedRoots are directory prefixes whose contents are never
	// transformed, such as vendored third party trees.
	ExcludedRoots []string `yaml:"excluded_roots"`
	// GeneratedFiles are exact repository relative paths of machine
	// generated files.
	GeneratedFiles []string `yaml:"generated_files"`
}

// Match reports whether p is eligible for the content transform.
func (f *PathFilter) Match(p string) bool {
	if f == nil {
		return false
	}

	for _, root := range f.ExcludedRoots {
		root = strings.TrimSuffix(root, "/")
		if p == root || strings.HasPrefix(p, root+"/") {
			return false
		}
	}

	for _, g := range f.GeneratedFiles {
		if p == g {
			return false
		}
	}

	for _, pattern := range f.Patterns {
		target := p
		if !strings.Contains(pattern, "/") {
			target = path.Base(p)
		}
		if ok, err := path.Match(pattern, target); err == nil && ok {
			return true
		}
	}

	return false
}

// FilterPaths returns the eligible subset of paths, preserving order.
func (f *PathFilter) FilterPaths(paths []string) []string {
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.Match(p) {
			result = append(result, p)
		}
	}

	return result
}
