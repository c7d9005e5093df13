package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func drainUntil(t *testing.T, ch <-chan Event, kind Kind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestWatcherEmitsNoticeThenWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/fsnotify/fsnotify.(*Watcher).readEvents"))

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	w, err := New(20 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Subscribe(dir, true, nil))

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

	notice := drainUntil(t, w.Events(), NoticeWrite, time.Second)
	assert.Equal(t, path, notice.Path)

	written := drainUntil(t, w.Events(), Written, time.Second)
	assert.Equal(t, path, written.Path)
}

func TestWatcherFiltersGitPaths(t *testing.T) {
	assert.True(t, isFilteredPath(filepath.Join("repo", ".git", "HEAD")))
	assert.True(t, isFilteredPath(filepath.Join("repo", ".hg", "store")))
	assert.True(t, isFilteredPath("icon.svg"))
	assert.False(t, isFilteredPath("notes.md"))
}
