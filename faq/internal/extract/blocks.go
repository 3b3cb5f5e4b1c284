package extract

import (
	"fmt"
	"regexp"
	"sort"
)

// anchorTags are the heading-like, accordion and definition elements
// whose text can anchor a question.
var anchorTags = []string{"h2", "h3", "strong", "button", "summary", "dt"}

// boilerplateTags are sub-regions removed from an answer span before
// normalization.
var boilerplateTags = []string{"header", "footer", "nav", "form", "aside"}

var (
	anchorRes      = compileTagRes(anchorTags)
	boilerplateRes = compileTagRes(boilerplateTags)
)

// compileTagRes builds one open..close regexp per tag. Go's regexp has
// no backreferences, so matching open and close tags pairwise needs a
// regexp per tag name.
func compileTagRes(tags []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		res[i] = regexp.MustCompile(fmt.Sprintf(`(?is)<%s\b[^>]*>([\s\S]*?)</%s>`, tag, tag))
	}
	return res
}

type anchor struct {
	text  string
	start int
	end   int
}

// extractBlocks scans for question anchors (headings, buttons, summary,
// definition terms) and captures the text between consecutive anchors as
// the answer. Anchors must pass the question heuristic and noise filter
// and stay under 180 characters; answers must survive boilerplate
// removal, dodge the noise filter and reach 40 characters; shorter
// spans are UI labels, not content.
func (e *Extractor) extractBlocks(doc string) []Pair {
	h := flatten(doc)

	var anchors []anchor
	for _, re := range anchorRes {
		for _, m := range re.FindAllStringSubmatchIndex(h, -1) {
			text := Normalize(h[m[2]:m[3]])
			if e.isQuestion(text) && !e.isNoise(text) && len(text) < 180 {
				anchors = append(anchors, anchor{text: text, start: m[0], end: m[1]})
			}
		}
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].start < anchors[j].start })

	// Drop anchors nested inside the previous one (e.g. a strong inside
	// an h2): the outer element wins.
	kept := anchors[:0]
	lastEnd := -1
	for _, a := range anchors {
		if a.start < lastEnd {
			continue
		}
		kept = append(kept, a)
		lastEnd = a.end
	}
	anchors = kept

	var pairs []Pair
	for i, cur := range anchors {
		nextStart := len(h)
		if i+1 < len(anchors) {
			nextStart = anchors[i+1].start
		}
		raw := h[cur.end:nextStart]
		for _, re := range boilerplateRes {
			raw = re.ReplaceAllString(raw, " ")
		}
		ans := Normalize(raw)
		if ans == "" || e.isNoise(ans) || len(ans) < 40 {
			continue
		}
		pairs = append(pairs, Pair{
			Question:   cur.text,
			Answer:     ans,
			AnswerHTML: raw,
			Strategy:   StrategyBlocks,
		})
	}
	return pairs
}
