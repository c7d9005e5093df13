// Package ignore parses .gitignore/.hgignore files and matches paths
// against the resulting patterns, with an additional doublestar
// include-glob overlay that applies whether or not an ignore file exists.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternType classifies a parsed pattern for fast matching.
type PatternType int

const (
	PatternExact PatternType = iota
	PatternPrefix
	PatternSuffix
	PatternWildcard
	PatternComplex
)

// Pattern is one parsed line of a .gitignore/.hgignore file.
type Pattern struct {
	Raw       string
	Negate    bool
	Directory bool
	Absolute  bool

	kind     PatternType
	prefix   string
	suffix   string
	compiled *regexp.Regexp
}

// Matcher holds the ordered patterns collected for one directory level.
// Patterns apply in file order, later entries overriding earlier ones,
// matching .gitignore semantics.
type Matcher struct {
	patterns []Pattern

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[string]*regexp.Regexp)}
}

// LoadFile parses patterns from a .gitignore or .hgignore file at path.
// A missing file is not an error: most directories do not have one.
func (m *Matcher) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, m.parse(line))
	}
	return scanner.Err()
}

// HasPatterns reports whether any pattern was loaded into this matcher.
func (m *Matcher) HasPatterns() bool {
	return len(m.patterns) > 0
}

func (m *Matcher) parse(line string) Pattern {
	p := Pattern{Raw: line}

	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}
	p.Raw = line

	p.kind, p.prefix, p.suffix, p.compiled = m.analyze(line)
	return p
}

func (m *Matcher) analyze(pattern string) (PatternType, string, string, *regexp.Regexp) {
	if !strings.ContainsAny(pattern, "*?[") {
		return PatternExact, pattern, pattern, nil
	}

	if strings.Contains(pattern, "*") && !strings.ContainsAny(pattern, "?[") {
		if strings.HasPrefix(pattern, "*") && !strings.Contains(pattern[1:], "*") {
			return PatternSuffix, "", pattern[1:], nil
		}
		if strings.HasSuffix(pattern, "*") && !strings.Contains(pattern[:len(pattern)-1], "*") {
			return PatternPrefix, pattern[:len(pattern)-1], "", nil
		}
	}

	regexPattern := globToRegex(pattern)
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[regexPattern]; ok {
		return PatternComplex, "", "", cached
	}
	compiled, err := regexp.Compile(regexPattern)
	if err != nil {
		return PatternWildcard, "", "", nil
	}
	m.cache[regexPattern] = compiled
	return PatternComplex, "", "", compiled
}

func globToRegex(pattern string) string {
	regex := regexp.QuoteMeta(pattern)
	regex = strings.ReplaceAll(regex, `\*`, `.*`)
	regex = strings.ReplaceAll(regex, `\?`, `.`)
	regex = strings.ReplaceAll(regex, `\[`, `[`)
	regex = strings.ReplaceAll(regex, `\]`, `]`)
	return "^" + regex + "$"
}

// ShouldIgnore reports whether path (slash-separated, relative to the
// directory this matcher was loaded for) should be excluded.
func (m *Matcher) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range m.patterns {
		if matches(p, path, isDir) {
			ignored = !p.Negate
		}
	}
	return ignored
}

func matches(p Pattern, path string, isDir bool) bool {
	if p.Directory {
		if isDir {
			return matchExact(p, path)
		}
		return strings.HasPrefix(path, p.Raw+"/") || matchExact(p, path)
	}

	if p.Absolute {
		return matchExact(p, path)
	}

	if matchExact(p, path) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := range parts {
		if matchExact(p, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func matchExact(p Pattern, path string) bool {
	switch p.kind {
	case PatternExact:
		return p.Raw == path
	case PatternPrefix:
		return strings.HasPrefix(path, p.prefix)
	case PatternSuffix:
		return strings.HasSuffix(path, p.suffix)
	case PatternComplex:
		return p.compiled.MatchString(path)
	case PatternWildcard:
		matched, _ := filepath.Match(p.Raw, path)
		return matched
	default:
		return p.Raw == path
	}
}

// Chain is an ordered stack of matchers from root to the current
// directory; a path is ignored if any level's matcher ignores it.
type Chain []*Matcher

// ShouldIgnore reports whether path is ignored by any matcher in the chain.
func (c Chain) ShouldIgnore(path string, isDir bool) bool {
	for _, m := range c {
		if m.ShouldIgnore(path, isDir) {
			return true
		}
	}
	return false
}

// IncludeList is a supplementary doublestar include-glob overlay: when
// non-empty, a path is eligible only if it matches one of the globs,
// regardless of ignore-file state.
type IncludeList []string

// Matches reports whether path (slash-separated, relative to the
// folder root) matches any glob in the list. An empty list matches
// everything.
func (l IncludeList) Matches(path string) bool {
	if len(l) == 0 {
		return true
	}
	for _, pattern := range l {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
