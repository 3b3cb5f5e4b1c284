// Package extract turns raw HTML into question/answer pairs.
//
// Four strategies run under one orchestrator: JSON-LD structured data,
// heading/accordion block scanning, an aggressive sentence scanner, and
// labeled Vraag:/Antwoord: pattern matching. Tag handling is regex-based
// on purpose: the pages this pipeline sees are frequently malformed, and
// best-effort text beats a parse failure.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	breakTagRe   = regexp.MustCompile(`(?i)</?(?:p|li|br)\b[^>]*>`)
	formRe       = regexp.MustCompile(`(?is)<form\b[\s\S]*?</form>`)
	scriptRe     = regexp.MustCompile(`(?is)<script\b[\s\S]*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b[\s\S]*?</style>`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe   = regexp.MustCompile(`\s{2,}`)
	breakRunRe   = regexp.MustCompile(`\n{3,}`)
	newlineRe    = regexp.MustCompile(`\r?\n`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize strips markup from an HTML fragment, converting block
// boundaries (p, li, br) to line breaks and removing form/script/style
// contents entirely. Runs of whitespace collapse to a single space and
// runs of 3+ newlines to a blank line. Malformed markup degrades to
// best-effort text; the result never contains tags.
func Normalize(s string) string {
	s = breakTagRe.ReplaceAllString(s, "\n")
	s = formRe.ReplaceAllString(s, " ")
	s = scriptRe.ReplaceAllString(s, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = anyTagRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = breakRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CanonicalKey derives the dedupe/diff key for a question: lowercased,
// whitespace collapsed, trimmed. Two questions with the same canonical
// key are the same question.
func CanonicalKey(question string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(question), " "))
}

// flatten replaces newlines with spaces so position-based scans see the
// document as a single line, matching how the extractors index into it.
func flatten(s string) string {
	return newlineRe.ReplaceAllString(s, " ")
}

// foldIndex locates the first occurrence of sub in s under per-rune
// lowercase folding, starting at byte offset from, and returns its byte
// offset in s itself. Lowering can change a rune's byte width, so
// offsets found in a lowered copy cannot be used to slice the original.
// Returns -1 when there is no match.
func foldIndex(s, sub string, from int) int {
	sr := []rune(strings.ToLower(sub))
	for i := from; i < len(s); {
		if foldHasPrefix(s[i:], sr) {
			return i
		}
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return -1
}

// foldHasPrefix reports whether s starts with the folded runes sr.
func foldHasPrefix(s string, sr []rune) bool {
	n := 0
	for _, q := range sr {
		r, w := utf8.DecodeRuneInString(s[n:])
		if w == 0 || unicode.ToLower(r) != q {
			return false
		}
		n += w
	}
	return true
}
