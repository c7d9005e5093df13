// Package indexer drives a single file through the text pipeline and
// into the store, orchestrating lookup, reindex, and insert.
package indexer

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rjcarver/intern/internal/store"
	"github.com/rjcarver/intern/internal/textpipe"
)

// Indexer reindexes individual files into a Store.
type Indexer struct {
	store  *store.Store
	logger *logrus.Logger
}

// New returns an Indexer writing into s.
func New(s *store.Store, logger *logrus.Logger) *Indexer {
	return &Indexer{store: s, logger: logger}
}

// IndexFile looks up path, reads its content (an unreadable file is
// treated as empty rather than skipped), tokenizes, and commits the
// resulting postings. If path is already recorded with a modified
// time at or after mtime, IndexFile is a no-op: modified must never
// decrease except when a file is re-created at the same path. Any
// store error is fatal: it is logged and the process aborts, since a
// partially-applied index is unsafe to serve queries against.
func (idx *Indexer) IndexFile(path string, mtime time.Time) {
	rec, found, err := idx.store.LookupFile(path)
	if err != nil {
		idx.logger.WithError(err).WithField("path", path).Fatal("lookup_file failed")
	}

	modified := mtime.Unix()

	if found && rec.Modified >= modified {
		return
	}

	var fileID int64
	brandNew := !found

	tx, err := idx.store.Begin()
	if err != nil {
		idx.logger.WithError(err).Fatal("begin index transaction failed")
	}

	if found {
		fileID = rec.ID
		if err := idx.store.UpdateMtime(tx, fileID, modified); err != nil {
			tx.Rollback()
			idx.logger.WithError(err).WithField("path", path).Fatal("update_mtime failed")
		}
	} else {
		fileID, err = idx.store.InsertFile(tx, path, modified)
		if err != nil {
			tx.Rollback()
			idx.logger.WithError(err).WithField("path", path).Fatal("insert_file failed")
		}
	}

	if err := tx.Commit(); err != nil {
		idx.logger.WithError(err).WithField("path", path).Fatal("commit file record failed")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		idx.logger.WithError(err).WithField("path", path).Debug("read failed, indexing as empty content")
		content = nil
	}

	tokens := textpipe.Process(string(content))

	if err := idx.store.ReindexFile(fileID, tokens, brandNew); err != nil {
		idx.logger.WithError(err).WithField("path", path).Fatal("reindex_file failed")
	}
}
