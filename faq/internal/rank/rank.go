package rank

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"
)

// MaxVisible caps how many items a single response carries.
const MaxVisible = 12

// Ranked is an item with its relevance score for one query.
type Ranked struct {
	Item
	Score float64
}

// Rank filters and scores items against a live query. An empty query
// preserves the incoming (server) order. Otherwise items survive when
// question or answer contains the query (case-insensitive substring)
// and score
//
//	10·[in question] + 6·[in answer] + max(4 − log2(firstOffset+1), 0)
//
// where firstOffset is the earliest match offset across question and
// answer. A question match at the very start is worth up to 4 extra
// points, decaying with position. Sort is descending by score and
// stable, so tied items keep the server order; the result is capped at
// MaxVisible.
func Rank(items []Item, query string) []Ranked {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Ranked, 0, min(len(items), MaxVisible))
		for _, it := range items {
			if len(out) == MaxVisible {
				break
			}
			out = append(out, Ranked{Item: it})
		}
		return out
	}

	out := make([]Ranked, 0, len(items))
	for _, it := range items {
		qi, _ := foldIndex(it.Question, query, 0)
		ai, _ := foldIndex(it.Answer, query, 0)
		if qi < 0 && ai < 0 {
			continue
		}
		score := 0.0
		if qi >= 0 {
			score += 10
		}
		if ai >= 0 {
			score += 6
		}
		first := qi
		if first < 0 || (ai >= 0 && ai < first) {
			first = ai
		}
		if bonus := 4 - math.Log2(float64(first+1)); bonus > 0 {
			score += bonus
		}
		out = append(out, Ranked{Item: it, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxVisible {
		out = out[:MaxVisible]
	}
	return out
}

// Highlight wraps every case-insensitive occurrence of query in text
// with <mark> tags, preserving the original casing of the matched span.
// Empty queries return text unchanged.
func Highlight(text, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return text
	}
	var b strings.Builder
	pos := 0
	for {
		start, end := foldIndex(text, query, pos)
		if start < 0 {
			break
		}
		b.WriteString(text[pos:start])
		b.WriteString("<mark>")
		b.WriteString(text[start:end])
		b.WriteString("</mark>")
		pos = end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// foldIndex locates the first occurrence of query in text under
// per-rune lowercase folding, starting at byte offset from. The span it
// returns indexes text itself, never a lowered copy: lowering can change
// a rune's byte width (U+023A is two bytes, its lowercase three), so
// offsets into strings.ToLower(text) do not transfer back. Returns
// (-1, -1) when there is no match.
func foldIndex(text, query string, from int) (start, end int) {
	qr := []rune(strings.ToLower(query))
	for i := from; i < len(text); {
		if n, ok := foldPrefix(text[i:], qr); ok {
			return i, i + n
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}
	return -1, -1
}

// foldPrefix reports whether s starts with the folded runes qr, and how
// many bytes of s they cover.
func foldPrefix(s string, qr []rune) (int, bool) {
	n := 0
	for _, q := range qr {
		r, w := utf8.DecodeRuneInString(s[n:])
		if w == 0 || unicode.ToLower(r) != q {
			return 0, false
		}
		n += w
	}
	return n, true
}

// Query is one live-search request with its issue sequence number.
type Query struct {
	Text string
	Seq  uint64
}

// Session hands out sequence numbers for live-search queries. Fast
// typing issues queries faster than results render; a result whose
// query is no longer the latest must be discarded, never shown.
type Session struct {
	seq atomic.Uint64
}

// NewQuery registers text as the latest query.
func (s *Session) NewQuery(text string) Query {
	return Query{Text: text, Seq: s.seq.Add(1)}
}

// Obsolete reports whether q has been superseded by a later NewQuery.
func (s *Session) Obsolete(q Query) bool {
	return q.Seq != s.seq.Load()
}
