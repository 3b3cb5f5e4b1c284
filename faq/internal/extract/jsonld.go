package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonLdRe = regexp.MustCompile(`(?is)<script[^>]+type=["']application/ld\+json["'][^>]*>([\s\S]*?)</script>`)

// extractStructured reads embedded JSON-LD blocks and returns the Q&A
// pairs of every FAQPage object, in document order. A block that fails
// to parse is skipped; one bad block never invalidates the others.
func (e *Extractor) extractStructured(doc string) []Pair {
	var out []Pair
	for _, m := range jsonLdRe.FindAllStringSubmatch(doc, -1) {
		var val any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &val); err != nil {
			continue
		}
		for _, block := range flattenJSON(val) {
			out = append(out, e.faqPagePairs(block)...)
		}
	}
	return out
}

// flattenJSON unwraps top-level arrays so both a single object and an
// array of objects yield a flat list of candidate blocks.
func flattenJSON(val any) []map[string]any {
	switch v := val.(type) {
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// faqPagePairs extracts pairs from one JSON-LD object if it is a
// FAQPage. Each mainEntity question keeps its name as the question and
// the nested acceptedAnswer text as the answer, filtered through the
// question heuristic and noise filter.
func (e *Extractor) faqPagePairs(block map[string]any) []Pair {
	if t, _ := block["@type"].(string); t != "FAQPage" {
		return nil
	}
	entities, _ := block["mainEntity"].([]any)

	var out []Pair
	for _, ent := range entities {
		q, ok := ent.(map[string]any)
		if !ok {
			continue
		}
		question := strings.TrimSpace(jsonString(q["name"]))
		if question == "" {
			question = strings.TrimSpace(jsonString(q["@name"]))
		}
		var answer string
		if acc, ok := q["acceptedAnswer"].(map[string]any); ok {
			answer = strings.TrimSpace(jsonString(acc["text"]))
		}
		if !e.isQuestion(question) || answer == "" {
			continue
		}
		if e.isNoise(question) || e.isNoise(answer) {
			continue
		}
		out = append(out, Pair{
			Question:   question,
			Answer:     answer,
			AnswerHTML: answer,
			Strategy:   StrategyStructured,
		})
	}
	return out
}

func jsonString(v any) string {
	s, _ := v.(string)
	return s
}
