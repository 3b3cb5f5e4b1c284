// Package rank orders Q&A items for presentation and scores them
// against live search queries. Both operations are pure; nothing here
// touches storage.
package rank

import (
	"sort"
	"strings"
)

// Badge is the derived change label shown next to an item. It is the
// type of the item's latest change record, or BadgeNone when the record
// is absent or has aged out.
type Badge string

const (
	BadgeNew     Badge = "new"
	BadgeUpdated Badge = "updated"
	BadgeStale   Badge = "stale"
	BadgeNone    Badge = ""
)

// badgePriority ranks badges for presentation. Stale items are normally
// unpublished and absent from the input, but the ordering handles them
// anyway.
func badgePriority(b Badge) int {
	switch b {
	case BadgeNew:
		return 0
	case BadgeUpdated:
		return 1
	case BadgeStale:
		return 3
	default:
		return 2
	}
}

// Item is the presentation view of a stored question.
type Item struct {
	ID       string
	Question string
	Answer   string
	Badge    Badge
}

// Order sorts items for presentation: fresh changes first (new, then
// updated, then unbadged, then stale), curated position within a tier,
// and input order for everything still tied. The curated list is
// deployment configuration, matched by case-insensitive substring in
// either direction; matched questions sort before unmatched ones.
func Order(items []Item, curated []string) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := badgePriority(out[i].Badge), badgePriority(out[j].Badge)
		if pi != pj {
			return pi < pj
		}
		return curatedIndex(out[i].Question, curated) < curatedIndex(out[j].Question, curated)
	})
	return out
}

// curatedIndex returns the position of the first curated entry that
// contains the question or is contained by it, ignoring case, or
// len(curated) when nothing matches.
func curatedIndex(question string, curated []string) int {
	q := strings.ToLower(question)
	for i, c := range curated {
		c = strings.ToLower(c)
		if strings.Contains(q, c) || strings.Contains(c, q) {
			return i
		}
	}
	return len(curated)
}
