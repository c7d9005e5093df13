// Package server runs intern's single-threaded poll loop: a 100ms poll
// of filesystem events feeding the Indexer, and a 100ms poll of the
// TCP listener feeding the Query engine. Neither poll blocks the
// other, and there is no concurrent access to the Store.
package server

import (
	"bufio"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rjcarver/intern/internal/indexer"
	"github.com/rjcarver/intern/internal/query"
	"github.com/rjcarver/intern/internal/watcher"
)

const pollTimeout = 100 * time.Millisecond

// ListenAddr is intern's fixed TCP bind address.
const ListenAddr = "0.0.0.0:48813"

// Server owns the event/connection poll loop.
type Server struct {
	listener *net.TCPListener
	watchers []*watcher.Watcher
	events   chan watcher.Event
	indexer  *indexer.Indexer
	engine   *query.Engine
	logger   *logrus.Logger
}

// New binds the TCP listener and returns a Server ready to Run. Each
// watcher's event channel is fanned into a single merged channel so
// the poll loop blocks on one receive rather than iterating watchers.
func New(addr string, watchers []*watcher.Watcher, idx *indexer.Indexer, engine *query.Engine, logger *logrus.Logger) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}

	events := make(chan watcher.Event, 64)
	for _, w := range watchers {
		go func(w *watcher.Watcher) {
			for ev := range w.Events() {
				events <- ev
			}
		}(w)
	}

	return &Server{
		listener: ln,
		watchers: watchers,
		events:   events,
		indexer:  idx,
		engine:   engine,
		logger:   logger,
	}, nil
}

// Close closes the listener and every watcher.
func (s *Server) Close() error {
	for _, w := range s.watchers {
		w.Close()
	}
	return s.listener.Close()
}

// Run loops forever, polling filesystem events and TCP connections.
// It returns only when stop is closed.
func (s *Server) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		s.pollEvents()
		s.pollConnections()
	}
}

func (s *Server) pollEvents() {
	select {
	case ev, ok := <-s.events:
		if ok {
			s.handleEvent(ev)
		}
	case <-time.After(pollTimeout):
	}
}

func (s *Server) handleEvent(ev watcher.Event) {
	switch ev.Kind {
	case watcher.Created, watcher.Chmod, watcher.NoticeRemove, watcher.NoticeWrite, watcher.Written, watcher.Removed:
		s.indexer.IndexFile(ev.Path, statTimeOrNow(ev.Path))
	case watcher.Renamed:
		s.logger.WithField("path", ev.Path).Debug("rename event ignored")
	case watcher.Rescan:
		s.logger.Debug("rescan event ignored")
	case watcher.Error:
		s.logger.WithError(ev.Err).Debug("watcher error")
	}
}

func (s *Server) pollConnections() {
	if err := s.listener.SetDeadline(time.Now().Add(pollTimeout)); err != nil {
		s.logger.WithError(err).Warn("failed to set listener deadline")
		return
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		s.logger.WithError(err).Warn("accept failed")
		return
	}
	s.handleConn(conn)
}

// statTimeOrNow returns path's modification time, falling back to the
// current time when the file is no longer present (e.g. a remove
// event): the Indexer absorbs the missing content as empty, so the
// record still needs a modified timestamp to store.
func statTimeOrNow(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		s.logger.WithError(err).Warn("client read failed")
		return
	}
	line = strings.TrimRight(line, "\r\n")

	resp := s.engine.Handle(line)
	if _, err := conn.Write([]byte(resp)); err != nil {
		s.logger.WithError(err).Warn("client write failed")
	}
}
