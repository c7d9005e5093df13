// Package query implements intern's line-oriented query protocol: a
// date filter (@on/@ago) and free-text stem-AND search with
// proximity-and-literal-match scoring.
//
// The response is always newline-joined with one trailing empty line
// appended — a wire-protocol quirk carried over intentionally rather
// than "fixed away", since existing clients depend on it.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rjcarver/intern/internal/store"
	"github.com/rjcarver/intern/internal/textpipe"
)

const dayLength = 24 * time.Hour

// Engine answers queries against a Store.
type Engine struct {
	store  *store.Store
	logger *logrus.Logger
}

// New returns an Engine reading from s.
func New(s *store.Store, logger *logrus.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// Handle dispatches one request line to the date filter or the
// free-text search, and returns the wire response (including the
// trailing empty line).
func (e *Engine) Handle(line string) string {
	switch {
	case strings.HasPrefix(line, "@on"):
		return e.handleDate(strings.TrimSpace(strings.TrimPrefix(line, "@on")))
	case strings.HasPrefix(line, "@ago"):
		return e.handleDate(strings.TrimSpace(strings.TrimPrefix(line, "@ago")))
	default:
		return e.handleFreeText(line)
	}
}

func (e *Engine) handleDate(arg string) string {
	day, err := time.ParseInLocation("2006-01-02", arg, time.Local)
	if err != nil {
		e.logger.WithError(err).WithField("input", arg).Warn("failed to parse date, falling back to today")
		now := time.Now()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	}

	start := day.Unix()
	end := day.Add(dayLength).Unix()

	paths, err := e.store.FilesModifiedBetween(start, end)
	if err != nil {
		e.logger.WithError(err).Fatal("files_modified_between failed")
		return "\n"
	}
	return joinWithTrailer(paths)
}

func (e *Engine) handleFreeText(line string) string {
	tokens := textpipe.Process(line)
	if len(tokens) == 0 {
		return "\n"
	}

	surfaceSeen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		surfaceSeen[t.Surface] = true
	}

	var stemIDs []int64
	seenStem := make(map[int64]bool)
	for _, t := range tokens {
		id, ok, err := e.store.StemID(t.Stem)
		if err != nil {
			e.logger.WithError(err).WithField("stem", t.Stem).Warn("stem_id lookup failed")
			continue
		}
		if !ok {
			continue
		}
		if seenStem[id] {
			continue
		}
		seenStem[id] = true
		stemIDs = append(stemIDs, id)
	}

	if len(stemIDs) == 0 {
		return "\n"
	}

	postings, err := e.store.PostingsForStems(stemIDs)
	if err != nil {
		e.logger.WithError(err).Fatal("postings_for_stems failed")
		return "\n"
	}

	groups := collate(postings, stemIDs)
	if len(groups) == 0 {
		return "\n"
	}

	type scored struct {
		path  string
		order int
		score float64
	}
	results := make([]scored, 0, len(groups))
	for _, g := range groups {
		results = append(results, scored{
			path:  g.path,
			order: g.order,
			score: score(g, stemIDs, surfaceSeen),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})

	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.path
	}
	return joinWithTrailer(paths)
}

// score implements the proximity-and-literal-bonus algorithm: start at
// 1.0, reward adjacent-stem offset closeness via a two-pointer merge,
// then apply a 1.1x multiplier per posting whose surface word matches
// an original query token.
func score(g *fileGroup, stemIDs []int64, surfaceSeen map[string]bool) float64 {
	total := 1.0

	for i := 0; i+1 < len(stemIDs); i++ {
		a := g.byStem[stemIDs[i]]
		b := g.byStem[stemIDs[i+1]]
		total += proximityBonus(a, b)
	}

	for _, id := range stemIDs {
		for _, p := range g.byStem[id] {
			if surfaceSeen[p.Word] {
				total *= 1.1
			}
		}
	}

	return total
}

// proximityBonus merges the offset sequences of two adjacent query
// stems, a occurring earlier in the query than b. Only pairs where b's
// occurrence follows a's (c >= o) are in order and score; the pointer
// into a advances once such a pair is scored, and the pointer into b
// advances when its current offset still precedes a's, looking for a
// later one. Every in-order pair contributes its own bonus — a pair
// that recurs close together repeatedly outscores one that occurs once.
func proximityBonus(a, b []store.Posting) float64 {
	var total float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		o := a[i].Offset
		c := b[j].Offset
		if c >= o {
			total += bonusFor(c - o)
			i++
		} else {
			j++
		}
	}
	return total
}

func bonusFor(d int) float64 {
	switch {
	case d < 2:
		return 3.0
	case d < 7:
		return 2.0
	case d <= 20:
		return 1.0
	default:
		return 0
	}
}

func joinWithTrailer(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}
