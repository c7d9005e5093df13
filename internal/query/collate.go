package query

import "github.com/rjcarver/intern/internal/store"

// fileGroup holds, per matched stem id, the ordered offset/word
// postings for one file.
type fileGroup struct {
	path   string
	order  int
	byStem map[int64][]store.Posting
}

// collate groups postings (already ordered by path, stem, offset) by
// path, keeping only files where every id in stemIDs is present —
// strict AND semantics. Insertion order is preserved for tie-breaking.
func collate(postings []store.Posting, stemIDs []int64) []*fileGroup {
	required := make(map[int64]bool, len(stemIDs))
	for _, id := range stemIDs {
		required[id] = true
	}

	index := make(map[string]*fileGroup)
	var order []*fileGroup

	for _, p := range postings {
		g, ok := index[p.Path]
		if !ok {
			g = &fileGroup{path: p.Path, order: len(order), byStem: make(map[int64][]store.Posting)}
			index[p.Path] = g
			order = append(order, g)
		}
		g.byStem[p.StemID] = append(g.byStem[p.StemID], p)
	}

	var result []*fileGroup
	for _, g := range order {
		complete := true
		for id := range required {
			if len(g.byStem[id]) == 0 {
				complete = false
				break
			}
		}
		if complete {
			result = append(result, g)
		}
	}
	return result
}
