// Package store is the embedded SQLite persistence layer backing the
// inverted index: monitored files, word stems, and per-file postings.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MaxParams bounds how many bound parameters a single bulk insert
// statement uses, kept well under SQLite's default compiled limit
// (SQLITE_MAX_VARIABLE_NUMBER, commonly 32766 on modern builds) so the
// same code works against more conservative builds too.
const MaxParams = 8192

// Store wraps the database connection, a prepared file lookup
// statement, and the process-lifetime stem cache.
type Store struct {
	db         *sql.DB
	lookupStmt *sql.Stmt

	MaxParams int

	cache *StemCache
}

// Open opens (creating if necessary) the SQLite database at path,
// applies pending schema migrations, and primes the stem cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	lookupStmt, err := db.Prepare("SELECT id, modified FROM monitored_file WHERE path = ?")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup_file: %w", err)
	}

	s := &Store{
		db:         db,
		lookupStmt: lookupStmt,
		MaxParams:  MaxParams,
		cache:      newStemCache(),
	}

	if err := s.primeCache(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the prepared statement and database connection.
func (s *Store) Close() error {
	if s.lookupStmt != nil {
		s.lookupStmt.Close()
	}
	return s.db.Close()
}

// FileRecord is one monitored_file row.
type FileRecord struct {
	ID       int64
	Path     string
	Modified int64
}

// LookupFile returns the stored record for path, or (FileRecord{}, false, nil)
// when no row exists.
func (s *Store) LookupFile(path string) (FileRecord, bool, error) {
	var rec FileRecord
	rec.Path = path
	err := s.lookupStmt.QueryRow(path).Scan(&rec.ID, &rec.Modified)
	if err == sql.ErrNoRows {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("lookup_file %s: %w", path, err)
	}
	return rec, true, nil
}

// InsertFile inserts a new monitored_file row and returns its id.
func (s *Store) InsertFile(tx *sql.Tx, path string, modified int64) (int64, error) {
	res, err := tx.Exec("INSERT INTO monitored_file (path, modified) VALUES (?, ?)", path, modified)
	if err != nil {
		return 0, fmt.Errorf("insert_file %s: %w", path, err)
	}
	return res.LastInsertId()
}

// UpdateMtime updates the stored modified time for an existing file id.
func (s *Store) UpdateMtime(tx *sql.Tx, fileID, modified int64) error {
	_, err := tx.Exec("UPDATE monitored_file SET modified = ? WHERE id = ?", modified, fileID)
	if err != nil {
		return fmt.Errorf("update_mtime %d: %w", fileID, err)
	}
	return nil
}

// ClearPostings deletes every posting belonging to fileID.
func (s *Store) ClearPostings(tx *sql.Tx, fileID int64) error {
	_, err := tx.Exec("DELETE FROM file_reverse_index WHERE file = ?", fileID)
	if err != nil {
		return fmt.Errorf("clear_postings %d: %w", fileID, err)
	}
	return nil
}

// FilesModifiedBetween returns the paths of files with modified in
// [start, end), ordered by modified ascending.
func (s *Store) FilesModifiedBetween(start, end int64) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT path FROM monitored_file WHERE modified >= ? AND modified < ? ORDER BY modified ASC",
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("files_modified_between: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Posting is one row of the file_reverse_index table, joined with its
// owning file's path for the Query engine's convenience.
type Posting struct {
	Path   string
	StemID int64
	Offset int
	Word   string
}

// PostingsForStems returns every posting whose stem is in stemIDs,
// ordered by (path, stem, offset) as required by the collator.
func (s *Store) PostingsForStems(stemIDs []int64) ([]Posting, error) {
	if len(stemIDs) == 0 {
		return nil, nil
	}

	var postings []Posting
	for _, chunk := range chunkInt64(stemIDs, s.maxParams()) {
		placeholders, args := placeholdersFor(chunk)
		query := fmt.Sprintf(`
			SELECT mf.path, fri.stem, fri.offset, fri.word
			FROM file_reverse_index fri
			JOIN monitored_file mf ON mf.id = fri.file
			WHERE fri.stem IN (%s)
			ORDER BY mf.path, fri.stem, fri.offset
		`, placeholders)

		rows, err := s.db.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("postings_for_stems: %w", err)
		}
		for rows.Next() {
			var p Posting
			if err := rows.Scan(&p.Path, &p.StemID, &p.Offset, &p.Word); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan posting: %w", err)
			}
			postings = append(postings, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return postings, nil
}

// Begin starts a transaction for a reindex sequence.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

func (s *Store) maxParams() int {
	if s.MaxParams <= 0 {
		return MaxParams
	}
	return s.MaxParams
}

func placeholdersFor[T any](items []T) (string, []any) {
	args := make([]any, len(items))
	ph := make([]byte, 0, len(items)*2)
	for i, v := range items {
		if i > 0 {
			ph = append(ph, ',')
		}
		ph = append(ph, '?')
		args[i] = v
	}
	return string(ph), args
}

func chunkInt64(items []int64, size int) [][]int64 {
	if size <= 0 {
		size = MaxParams
	}
	var chunks [][]int64
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}
