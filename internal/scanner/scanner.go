// Package scanner walks a configured folder, applying .gitignore/.hgignore
// exclusion and an optional include-glob overlay, and routes each eligible
// file to a callback together with its current modification time.
package scanner

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rjcarver/intern/internal/ignore"
)

var skipDirNames = map[string]bool{
	".git": true,
	".hg":  true,
}

// FileFunc is invoked for each eligible file discovered by Walk.
type FileFunc func(path string, mtime time.Time)

// Walk scans root, descending into subdirectories only when recurse is
// true. includes, when non-empty, restricts emitted files to those
// matching one of the doublestar globs (relative to root).
func Walk(root string, recurse bool, includes ignore.IncludeList, emit FileFunc) error {
	rootMatcher := ignore.NewMatcher()
	loadIgnoreFiles(root, rootMatcher)

	return walkDir(root, root, recurse, ignore.Chain{rootMatcher}, includes, emit)
}

func walkDir(root, dir string, recurse bool, chain ignore.Chain, includes ignore.IncludeList, emit FileFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if skipDirNames[name] {
			continue
		}

		path := filepath.Join(dir, name)
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if chain.ShouldIgnore(rel, true) {
				continue
			}
			if !recurse {
				continue
			}

			subMatcher := ignore.NewMatcher()
			loadIgnoreFiles(path, subMatcher)
			subChain := append(append(ignore.Chain{}, chain...), subMatcher)

			if err := walkDir(root, path, recurse, subChain, includes, emit); err != nil {
				return err
			}
			continue
		}

		if chain.ShouldIgnore(rel, false) {
			continue
		}
		if !includes.Matches(rel) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		emit(path, info.ModTime())
	}
	return nil
}

func loadIgnoreFiles(dir string, m *ignore.Matcher) {
	_ = m.LoadFile(filepath.Join(dir, ".gitignore"))
	_ = m.LoadFile(filepath.Join(dir, ".hgignore"))
}

// Stat re-reads the modification time of path, used by callers that
// need a fresh mtime outside of a Walk pass.
func Stat(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
