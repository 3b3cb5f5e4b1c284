package extract

import (
	"regexp"
	"strings"
)

// Strategy identifies which extraction algorithm produced a pair.
// Listed in trust order: structured data is authoritative, patterns is
// the last-ditch fallback.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyBlocks     Strategy = "blocks"
	StrategyAggressive Strategy = "aggressive"
	StrategyPatterns   Strategy = "patterns"
)

// Pair is one extracted question/answer.
type Pair struct {
	Question   string
	Answer     string
	AnswerHTML string // raw span the answer was cut from, when the strategy has one
	Strategy   Strategy
}

// Options configures an Extractor. The zero value gets Dutch defaults
// matching the deployment this pipeline was built for; vocabulary and
// section markers are injectable per deployment.
type Options struct {
	// QuestionWords qualify text as a question when matched on a word
	// boundary (case-insensitive). Text ending in "?" always qualifies.
	QuestionWords []string

	// NoisePattern rejects marketing/navigation text regardless of the
	// question heuristic. Must be a valid regexp.
	NoisePattern string

	// SectionHeading bounds the domain-scoped slice; the whole page is
	// used when absent.
	SectionHeading string

	// SectionEnds are trailing markers; the earliest one after the
	// heading ends the slice.
	SectionEnds []string

	// Aggressive enables the lowest-confidence sentence scanner. It can
	// produce false positives on non-FAQ sentences ending in "?", so
	// deployments may turn it off.
	Aggressive *bool

	// MaxItems caps merged heuristic results. Default: 12.
	MaxItems int
}

var defaultQuestionWords = []string{
	"hoe", "wat", "waar", "wanneer", "welke", "kan", "mag", "is", "zijn",
	"werkt", "hoeveel", "waarom", "krijg", "doet",
}

const defaultNoisePattern = `(?i)(nieuwsbrief|magazine|verkooppunten|stalen bestellen|e-?mailadres|inschrijven|winkel|dealer|gtag|google-analytics|cookie)`

func (o *Options) defaults() {
	if len(o.QuestionWords) == 0 {
		o.QuestionWords = defaultQuestionWords
	}
	if o.NoisePattern == "" {
		o.NoisePattern = defaultNoisePattern
	}
	if o.SectionHeading == "" {
		o.SectionHeading = "veelgestelde vragen"
	}
	if len(o.SectionEnds) == 0 {
		o.SectionEnds = []string{"meer service", "©", "<footer", "contact", "klantenservice"}
	}
	if o.Aggressive == nil {
		on := true
		o.Aggressive = &on
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 12
	}
}

// Extractor runs the strategy chain over HTML documents.
type Extractor struct {
	opts     Options
	question *regexp.Regexp
	noise    *regexp.Regexp
}

// New compiles the heuristics from opts. Invalid custom patterns fall
// back to the defaults rather than failing: extraction must never be the
// component that brings a deployment down.
func New(opts Options) *Extractor {
	opts.defaults()

	noise, err := regexp.Compile(opts.NoisePattern)
	if err != nil {
		noise = regexp.MustCompile(defaultNoisePattern)
	}

	words := make([]string, 0, len(opts.QuestionWords))
	for _, w := range opts.QuestionWords {
		words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
	}
	question, err := regexp.Compile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	if err != nil {
		question = regexp.MustCompile(`(?i)\b(` + strings.Join(defaultQuestionWords, "|") + `)\b`)
	}

	return &Extractor{opts: opts, question: question, noise: noise}
}

// isQuestion reports whether text is question-shaped: it ends with "?"
// or contains an interrogative/modal word on a word boundary.
func (e *Extractor) isQuestion(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return strings.HasSuffix(s, "?") || e.question.MatchString(s)
}

// isNoise reports whether text matches the marketing/navigation filter.
func (e *Extractor) isNoise(s string) bool {
	return e.noise.MatchString(s)
}

// Extract runs the full strategy chain over an HTML document:
//
//  1. JSON-LD FAQPage blocks. Non-empty results are returned as-is:
//     structured data is authoritative and never merged with heuristics.
//  2. Otherwise the domain-scoped slice is scanned by the block,
//     aggressive and pattern extractors; outputs merge in that priority
//     order, dedupe by canonical key (first seen wins) and cap at
//     MaxItems.
//  3. If still empty, the block extractor re-runs over the whole page.
//
// Extract never fails: a strategy that finds nothing contributes an
// empty list, and total failure yields nil.
func (e *Extractor) Extract(doc string) []Pair {
	if pairs := e.extractStructured(doc); len(pairs) > 0 {
		return pairs
	}

	region := e.slice(doc)

	merged := e.extractBlocks(region)
	if *e.opts.Aggressive {
		merged = append(merged, e.extractAggressive(region)...)
	}
	merged = append(merged, e.extractPatterns(region)...)

	unique := dedupe(merged)
	if len(unique) > 0 {
		if len(unique) > e.opts.MaxItems {
			unique = unique[:e.opts.MaxItems]
		}
		return unique
	}

	return e.extractBlocks(doc)
}

// slice returns the region between the section heading and the earliest
// trailing marker, or the whole document when the heading is absent.
func (e *Extractor) slice(doc string) string {
	start := foldIndex(doc, e.opts.SectionHeading, 0)
	if start < 0 {
		return doc
	}
	end := len(doc)
	for _, marker := range e.opts.SectionEnds {
		if i := foldIndex(doc, marker, start); i > start && i < end {
			end = i
		}
	}
	return doc[start:end]
}

// dedupe keeps the first pair per canonical key, preserving order.
// Because inputs are concatenated in strategy priority order, the
// surviving pair always comes from the higher-priority strategy.
func dedupe(pairs []Pair) []Pair {
	seen := make(map[string]bool, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		key := CanonicalKey(p.Question)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
