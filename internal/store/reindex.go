package store

import (
	"database/sql"
	"fmt"

	"github.com/rjcarver/intern/internal/textpipe"
)

// ReindexFile replaces the postings for fileID with tokens, inside a
// single transaction: clear_postings, bulk_insert_stems for any stem
// not already known, then bulk_insert_postings. fileID identifies an
// existing monitored_file row; brandNew skips the clear step since
// there is nothing to clear yet.
func (s *Store) ReindexFile(fileID int64, tokens []textpipe.Token, brandNew bool) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin reindex tx: %w", err)
	}
	defer tx.Rollback()

	if !brandNew {
		if err := s.ClearPostings(tx, fileID); err != nil {
			return err
		}
	}

	stemIDs, err := s.ensureStems(tx, tokens)
	if err != nil {
		return err
	}

	if err := s.insertPostings(tx, fileID, tokens, stemIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// ensureStems returns stem -> id for every distinct stem among tokens,
// inserting any not already present in the cache or the table.
func (s *Store) ensureStems(tx *sql.Tx, tokens []textpipe.Token) (map[string]int64, error) {
	ids := make(map[string]int64, len(tokens))
	var missing []string

	for _, tok := range tokens {
		if _, ok := ids[tok.Stem]; ok {
			continue
		}
		if id, ok := s.cache.Lookup(tok.Stem); ok {
			ids[tok.Stem] = id
			continue
		}
		missing = append(missing, tok.Stem)
	}

	if len(missing) == 0 {
		return ids, nil
	}

	inserted, err := s.bulkInsertStems(tx, missing)
	if err != nil {
		return nil, err
	}
	for stem, id := range inserted {
		ids[stem] = id
		s.cache.Put(stem, id)
	}
	return ids, nil
}

// bulkInsertStems inserts stems not already present, one INSERT per
// chunk of the store's parameter limit, and returns stem -> id for all
// of them (existing or freshly inserted).
func (s *Store) bulkInsertStems(tx *sql.Tx, stems []string) (map[string]int64, error) {
	unique := dedupeStrings(stems)
	result := make(map[string]int64, len(unique))

	for _, chunk := range chunkStrings(unique, s.maxParams()) {
		placeholders := make([]byte, 0, len(chunk)*3)
		args := make([]any, len(chunk))
		for i, stem := range chunk {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '(', '?', ')')
			args[i] = stem
		}
		query := fmt.Sprintf("INSERT INTO word_stem (stem) VALUES %s ON CONFLICT(stem) DO NOTHING", string(placeholders))
		if _, err := tx.Exec(query, args...); err != nil {
			return nil, fmt.Errorf("bulk_insert_stems: %w", err)
		}
	}

	ids, err := s.queryStemsIn(tx, unique)
	if err != nil {
		return nil, err
	}
	for stem, id := range ids {
		result[stem] = id
	}
	return result, nil
}

func (s *Store) queryStemsIn(tx *sql.Tx, stems []string) (map[string]int64, error) {
	out := make(map[string]int64, len(stems))
	for _, chunk := range chunkStrings(stems, s.maxParams()) {
		placeholders, args := placeholdersFor(chunk)
		query := fmt.Sprintf("SELECT id, stem FROM word_stem WHERE stem IN (%s)", placeholders)
		rows, err := tx.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("query stems: %w", err)
		}
		for rows.Next() {
			var id int64
			var stem string
			if err := rows.Scan(&id, &stem); err != nil {
				rows.Close()
				return nil, err
			}
			out[stem] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// insertPostings writes one (file, stem, offset, word) tuple per
// token, chunked at the store's parameter limit.
func (s *Store) insertPostings(tx *sql.Tx, fileID int64, tokens []textpipe.Token, stemIDs map[string]int64) error {
	const fieldsPerRow = 4
	rowsPerChunk := s.maxParams() / fieldsPerRow
	if rowsPerChunk == 0 {
		rowsPerChunk = 1
	}

	for start := 0; start < len(tokens); start += rowsPerChunk {
		end := start + rowsPerChunk
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		placeholders := make([]byte, 0, len(chunk)*9)
		args := make([]any, 0, len(chunk)*fieldsPerRow)
		for i, tok := range chunk {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '(', '?', ',', '?', ',', '?', ',', '?', ')')
			args = append(args, fileID, stemIDs[tok.Stem], tok.Offset, tok.Surface)
		}

		query := fmt.Sprintf("INSERT INTO file_reverse_index (file, stem, offset, word) VALUES %s", string(placeholders))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("bulk_insert_postings: %w", err)
		}
	}
	return nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = MaxParams
	}
	var chunks [][]string
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
