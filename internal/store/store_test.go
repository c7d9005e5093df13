package store

import (
	"path/filepath"
	"testing"

	"github.com/rjcarver/intern/internal/textpipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intern.sqlite3")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func reindex(t *testing.T, s *Store, path, contents string, modified int64) int64 {
	t.Helper()
	rec, found, err := s.LookupFile(path)
	require.NoError(t, err)

	var fileID int64
	brandNew := !found
	if found {
		fileID = rec.ID
		tx, err := s.Begin()
		require.NoError(t, err)
		require.NoError(t, s.UpdateMtime(tx, fileID, modified))
		require.NoError(t, tx.Commit())
	} else {
		tx, err := s.Begin()
		require.NoError(t, err)
		fileID, err = s.InsertFile(tx, path, modified)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	tokens := textpipe.Process(contents)
	require.NoError(t, s.ReindexFile(fileID, tokens, brandNew))
	return fileID
}

func TestReindexSingleFile(t *testing.T) {
	s := openTestStore(t)
	reindex(t, s, "/tmp/a.txt", "The quick brown fox", 1700000000)

	stemIDs := make([]int64, 0, 4)
	for _, stem := range []string{"the", "quick", "brown", "fox"} {
		id, ok, err := s.StemID(stem)
		require.NoError(t, err)
		require.True(t, ok, "expected stem %q to exist", stem)
		stemIDs = append(stemIDs, id)
	}

	postings, err := s.PostingsForStems(stemIDs)
	require.NoError(t, err)
	assert.Len(t, postings, 4)

	offsets := make(map[string]int)
	for _, p := range postings {
		offsets[p.Word] = p.Offset
	}
	assert.Equal(t, map[string]int{"The": 0, "quick": 1, "brown": 2, "fox": 3}, offsets)
}

func TestReindexReplacesContent(t *testing.T) {
	s := openTestStore(t)
	reindex(t, s, "/tmp/a.txt", "The quick brown fox", 1700000000)
	reindex(t, s, "/tmp/a.txt", "brown fox jumps", 1700000100)

	jumpsID, ok, err := s.StemID(textpipe.Stem("jumps"))
	require.NoError(t, err)
	require.True(t, ok)

	postings, err := s.PostingsForStems([]int64{jumpsID})
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "jumps", postings[0].Word)
	assert.Equal(t, 2, postings[0].Offset)

	theID, ok, _ := s.StemID(textpipe.Stem("The"))
	if ok {
		postings, err := s.PostingsForStems([]int64{theID})
		require.NoError(t, err)
		assert.Empty(t, postings, "'the' should no longer appear after reindex")
	}
}

func TestFilesModifiedBetweenHalfOpenWindow(t *testing.T) {
	s := openTestStore(t)
	reindex(t, s, "/a", "alpha", 1700000000)
	reindex(t, s, "/b", "alpha", 1700086399)
	reindex(t, s, "/c", "alpha", 1700086400)

	paths, err := s.FilesModifiedBetween(1700000000, 1700086400)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, paths)
}

func TestReindexIdempotence(t *testing.T) {
	s := openTestStore(t)
	reindex(t, s, "/tmp/a.txt", "alpha beta alpha", 1700000000)
	reindex(t, s, "/tmp/a.txt", "alpha beta alpha", 1700000000)

	alphaID, ok, err := s.StemID(textpipe.Stem("alpha"))
	require.NoError(t, err)
	require.True(t, ok)

	postings, err := s.PostingsForStems([]int64{alphaID})
	require.NoError(t, err)
	assert.Len(t, postings, 2)
}

func TestStemCacheServesWithoutRoundTrip(t *testing.T) {
	s := openTestStore(t)
	reindex(t, s, "/tmp/a.txt", "alpha", 1700000000)

	cached, ok := s.cache.Lookup(textpipe.Stem("alpha"))
	require.True(t, ok)

	id, ok, err := s.StemID(textpipe.Stem("alpha"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cached, id)
}
