package extract

import (
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[^.!?]*\?`)

// scriptLikeTokens reject candidates that are really URLs or inlined
// script remnants masquerading as prose.
var scriptLikeTokens = []string{"/", "http", "www", "gtag", "script", "com/", ".js"}

// extractAggressive is the lowest-confidence fallback: any run of text
// ending in "?" is a candidate question. Candidates must be 15–199
// characters, question-shaped, clear of noise and free of path/link/
// script tokens. The answer is the following text up to the next
// sentence terminator (or a 500-character cap), kept at 50+ characters.
func (e *Extractor) extractAggressive(doc string) []Pair {
	h := flatten(doc)

	var pairs []Pair
	for _, m := range sentenceRe.FindAllStringIndex(h, -1) {
		question := strings.TrimSpace(Normalize(h[m[0]:m[1]]))
		if len(question) <= 15 || len(question) >= 200 {
			continue
		}
		if e.isNoise(question) || !e.isQuestion(question) {
			continue
		}
		if containsAny(question, scriptLikeTokens) {
			continue
		}

		after := h[m[1]:]
		end := strings.IndexAny(after, ".!?")
		var raw string
		if end > 0 {
			raw = after[:end]
		} else {
			raw = after[:min(500, len(after))]
		}
		answer := strings.TrimSpace(Normalize(raw))
		if len(answer) < 50 || e.isNoise(answer) {
			continue
		}
		pairs = append(pairs, Pair{
			Question:   question,
			Answer:     answer,
			AnswerHTML: raw,
			Strategy:   StrategyAggressive,
		})
	}
	return pairs
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
