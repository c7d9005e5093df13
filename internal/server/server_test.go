package server

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjcarver/intern/internal/indexer"
	"github.com/rjcarver/intern/internal/query"
	"github.com/rjcarver/intern/internal/store"
	"github.com/rjcarver/intern/internal/watcher"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestServerRespondsToFreeTextQuery(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "intern.sqlite3"))
	require.NoError(t, err)
	defer s.Close()

	idx := indexer.New(s, testLogger())
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta"), 0o644))
	idx.IndexFile(path, time.Unix(1700000000, 0))

	engine := query.New(s, testLogger())

	srv, err := New("127.0.0.1:0", nil, idx, engine, testLogger())
	require.NoError(t, err)
	defer srv.Close()

	addr := srv.listener.Addr().String()

	stop := make(chan struct{})
	go srv.Run(stop)
	defer close(stop)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("alpha\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, path, line[:len(line)-1])
}

func TestHandleEventIgnoresRenameAndRescan(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "intern.sqlite3"))
	require.NoError(t, err)
	defer s.Close()

	idx := indexer.New(s, testLogger())
	engine := query.New(s, testLogger())
	srv, err := New("127.0.0.1:0", nil, idx, engine, testLogger())
	require.NoError(t, err)
	defer srv.Close()

	assert.NotPanics(t, func() {
		srv.handleEvent(watcher.Event{Kind: watcher.Renamed, Path: "/x"})
		srv.handleEvent(watcher.Event{Kind: watcher.Rescan})
		srv.handleEvent(watcher.Event{Kind: watcher.Error, Err: assert.AnError})
	})
}
