package textpipe

import (
	"strings"

	"github.com/surgebase/porter2"
	"golang.org/x/text/unicode/norm"
)

// combining diacritic range folded out of a token before stemming.
const (
	combiningLow  = 0x0300
	combiningHigh = 0x035F
)

// Stem produces the canonical stem of a surface token: NFD decomposition,
// diacritic stripping, lowercasing, and Porter2 English stemming. The
// result may be empty, in which case the caller must not persist it.
func Stem(token string) string {
	decomposed := norm.NFD.String(token)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r >= combiningLow && r <= combiningHigh {
			continue
		}
		b.WriteRune(r)
	}

	lowered := strings.ToLower(b.String())
	return strings.TrimSpace(porter2.Stem(lowered))
}

// Token is the Indexer's unit of output: a surface word as it appeared in
// the source (after punctuation stripping), its canonical stem, and its
// 0-based offset among the tokens that survived stemming.
type Token struct {
	Surface string
	Stem    string
	Offset  int
}

// Process tokenizes and stems text, dropping any token whose stem is
// empty and renumbering offsets over the surviving tokens so that they
// form a contiguous prefix starting at 0.
func Process(text string) []Token {
	surfaces := Tokenize(text)
	tokens := make([]Token, 0, len(surfaces))
	offset := 0
	for _, surface := range surfaces {
		stem := Stem(surface)
		if stem == "" {
			continue
		}
		tokens = append(tokens, Token{Surface: surface, Stem: stem, Offset: offset})
		offset++
	}
	return tokens
}
