package workflows

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Document is a retrieved chunk of text.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Retriever returns the k documents most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// SplitText cuts text into chunks of at most size runes. It splits on the
// first separator that occurs in the text, packs consecutive pieces into
// chunks, and splits oversized pieces again with the remaining separators.
func SplitText(text string, size int, separators ...string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= size {
		return []string{text}
	}

	for i, sep := range separators {
		if !strings.Contains(text, sep) {
			continue
		}

		var chunks []string
		var current strings.Builder
		flush := func() {
			if s := strings.TrimSpace(current.String()); s != "" {
				chunks = append(chunks, s)
			}
			current.Reset()
		}

		for _, piece := range strings.Split(text, sep) {
			if len([]rune(piece)) > size {
				flush()
				chunks = append(chunks, SplitText(piece, size, separators[i+1:]...)...)
				continue
			}
			if current.Len() > 0 && len([]rune(current.String()))+len(sep)+len([]rune(piece)) > size {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString(sep)
			}
			current.WriteString(piece)
		}
		flush()
		return chunks
	}

	// No separator left: hard cut.
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		chunks = append(chunks, string(runes[min(start, len(runes)):min(start+size, len(runes))]))
	}
	return chunks
}

// KeywordIndex ranks chunks by how many query terms they contain.
type KeywordIndex struct {
	docs  []Document
	terms []map[string]int
}

// NewKeywordIndex indexes chunks in order; document IDs are chunk-N.
func NewKeywordIndex(chunks []string) *KeywordIndex {
	idx := &KeywordIndex{}
	for i, c := range chunks {
		idx.docs = append(idx.docs, Document{ID: fmt.Sprintf("chunk-%d", i), Content: c})
		counts := make(map[string]int)
		for _, t := range tokenize(c) {
			counts[t]++
		}
		idx.terms = append(idx.terms, counts)
	}
	return idx
}

// Retrieve implements Retriever. Documents without any query term are
// never returned; ties keep corpus order.
func (idx *KeywordIndex) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTerms := tokenize(query)
	var hits []Document
	for i, doc := range idx.docs {
		score := 0.0
		for _, t := range queryTerms {
			if n := idx.terms[i][t]; n > 0 {
				score += 1 + float64(n-1)*0.1
			}
		}
		if score > 0 {
			doc.Score = score
			hits = append(hits, doc)
		}
	}

	slices.SortStableFunc(hits, func(a, b Document) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true,
	"are": true, "was": true, "this": true, "that": true, "from": true,
	"about": true, "latest": true, "status": true, "major": true,
}

// tokenize lowercases text and keeps words of three or more letters.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len(w) >= 3 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}
