package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadLines(t *testing.T, lines ...string) *Matcher {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	m := NewMatcher()
	require.NoError(t, m.LoadFile(path))
	return m
}

func TestMatcherExactAndWildcard(t *testing.T) {
	m := loadLines(t, "*.log", "build/")

	assert.True(t, m.ShouldIgnore("debug.log", false))
	assert.False(t, m.ShouldIgnore("debug.txt", false))
	assert.True(t, m.ShouldIgnore("build", true))
	assert.True(t, m.ShouldIgnore("build/output.txt", false))
}

func TestMatcherNegation(t *testing.T) {
	m := loadLines(t, "*.log", "!important.log")

	assert.True(t, m.ShouldIgnore("debug.log", false))
	assert.False(t, m.ShouldIgnore("important.log", false))
}

func TestMatcherMissingFileIsNotError(t *testing.T) {
	m := NewMatcher()
	err := m.LoadFile(filepath.Join(t.TempDir(), ".gitignore"))
	assert.NoError(t, err)
	assert.False(t, m.HasPatterns())
}

func TestChainShouldIgnoreAnyLevel(t *testing.T) {
	root := loadLines(t, "*.tmp")
	sub := loadLines(t, "secret.txt")
	chain := Chain{root, sub}

	assert.True(t, chain.ShouldIgnore("scratch.tmp", false))
	assert.True(t, chain.ShouldIgnore("secret.txt", false))
	assert.False(t, chain.ShouldIgnore("notes.md", false))
}

func TestIncludeListEmptyMatchesEverything(t *testing.T) {
	var l IncludeList
	assert.True(t, l.Matches("anything.go"))
}

func TestIncludeListGlobMatching(t *testing.T) {
	l := IncludeList{"**/*.md"}
	assert.True(t, l.Matches("docs/readme.md"))
	assert.False(t, l.Matches("docs/readme.txt"))
}
