package extract

import "regexp"

var (
	questionLabelRe = regexp.MustCompile(`(?i)\b(?:Vraag|Question|Q):`)
	labeledPairRe   = regexp.MustCompile(`(?is)^\s*([^?]+\?)\s*(?:A|Antwoord|Answer):\s*(.+)$`)
)

// extractPatterns handles explicitly labeled Q&A text: "Vraag: ...?
// Antwoord: ...". The document is split at question labels and each
// segment must contain a question ending in "?" followed by an answer
// label. Questions must exceed 10 characters and answers 30; labeled
// content is deliberate enough that the question-word heuristic is not
// applied, only the noise filter.
func (e *Extractor) extractPatterns(doc string) []Pair {
	h := flatten(doc)

	labels := questionLabelRe.FindAllStringIndex(h, -1)
	var pairs []Pair
	for i, label := range labels {
		end := len(h)
		if i+1 < len(labels) {
			end = labels[i+1][0]
		}
		m := labeledPairRe.FindStringSubmatch(h[label[1]:end])
		if m == nil {
			continue
		}
		question := Normalize(m[1])
		answer := Normalize(m[2])
		if len(question) <= 10 || len(answer) <= 30 {
			continue
		}
		if e.isNoise(question) || e.isNoise(answer) {
			continue
		}
		pairs = append(pairs, Pair{
			Question:   question,
			Answer:     answer,
			AnswerHTML: m[2],
			Strategy:   StrategyPatterns,
		})
	}
	return pairs
}
