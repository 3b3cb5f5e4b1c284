// Package diff classifies freshly extracted Q&A pairs against the
// stored snapshot of a context. It is pure bookkeeping: callers decide
// how to persist the outcome.
package diff

// Observed is one extracted pair, keyed for comparison. The canonical
// key is the identity; question and answer carry the presentation text.
type Observed struct {
	CanonicalKey string
	Question     string
	Answer       string
	AnswerHTML   string
	Strategy     string
	SourceID     string
}

// Item is the stored view of a question as the classifier needs it.
type Item struct {
	ID           string
	CanonicalKey string
	Question     string
	Answer       string
	Published    bool
}

// Match pairs a stored item with the observation that matched it.
type Match struct {
	Item     Item
	Observed Observed
}

// Result partitions one extraction batch.
//
// New items were never seen before. Updated items exist with a
// byte-different answer. Unchanged items matched exactly and need no
// change record, though a previously unpublished match should be
// republished. Stale items are published items the batch no longer
// observed.
type Result struct {
	New       []Observed
	Updated   []Match
	Unchanged []Match
	Stale     []Item
}

// Classify compares a batch of observations against the stored
// snapshot. Observations with an empty or repeated canonical key are
// skipped; the first occurrence wins. Answers compare byte-for-byte on
// their normalized text.
//
// Stale detection only runs when allowStale is true: a degraded batch
// (one or more sources failed) cannot distinguish "question removed"
// from "page unavailable", so absence proves nothing. Only published
// items can go stale; an already unpublished item stays as it is.
func Classify(observed []Observed, snapshot []Item, allowStale bool) Result {
	byKey := make(map[string]Item, len(snapshot))
	for _, it := range snapshot {
		byKey[it.CanonicalKey] = it
	}

	seen := make(map[string]bool, len(observed))
	var res Result
	for _, o := range observed {
		if o.CanonicalKey == "" || seen[o.CanonicalKey] {
			continue
		}
		seen[o.CanonicalKey] = true

		it, ok := byKey[o.CanonicalKey]
		if !ok {
			res.New = append(res.New, o)
			continue
		}
		if it.Answer != o.Answer {
			res.Updated = append(res.Updated, Match{Item: it, Observed: o})
		} else {
			res.Unchanged = append(res.Unchanged, Match{Item: it, Observed: o})
		}
	}

	if allowStale {
		for _, it := range snapshot {
			if it.Published && !seen[it.CanonicalKey] {
				res.Stale = append(res.Stale, it)
			}
		}
	}
	return res
}
