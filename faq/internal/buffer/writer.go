// Package buffer writes Q&A items as .md files to a filesystem buffer
// for asynchronous consumption by downstream indexers.
//
// Each file carries YAML frontmatter with item metadata; the body is
// the question as a heading and the answer converted to markdown.
// Files are written atomically (write .tmp then rename) to prevent
// partial reads by consumers.
package buffer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/hazyhaar/vraagbaak/idgen"
)

// Metadata describes one Q&A item for a .md file.
type Metadata struct {
	ID          string // item ID; also the filename, so re-runs overwrite
	Context     string
	SourceID    string
	SourceURL   string
	Question    string
	Strategy    string
	ExtractedAt time.Time
}

// Writer deposits .md files into the buffer directory.
type Writer struct {
	dir   string
	newID func() string
}

// NewWriter creates a Writer targeting the given directory. The
// directory is created on first write if it does not exist.
func NewWriter(dir string) *Writer {
	return &Writer{
		dir:   dir,
		newID: idgen.New,
	}
}

// WriteItem creates a .md file for one Q&A item: frontmatter, the
// question as heading, the answer as body. answerHTML is converted to
// markdown when present; conversion failure or absence falls back to
// the plain answer text. Returns the path of the written file.
func (w *Writer) WriteItem(ctx context.Context, meta Metadata, answerHTML, answerText string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("buffer: mkdir %s: %w", w.dir, err)
	}

	if meta.ID == "" {
		meta.ID = w.newID()
	}

	target := filepath.Join(w.dir, meta.ID+".md")
	tmp := target + ".tmp"

	body := answerText
	if strings.TrimSpace(answerHTML) != "" {
		if md, err := htmltomarkdown.ConvertString(answerHTML); err == nil && strings.TrimSpace(md) != "" {
			body = strings.TrimSpace(md)
		}
	}
	content := formatFrontmatter(meta) + "## " + meta.Question + "\n\n" + body + "\n"

	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("buffer: write tmp: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("buffer: rename: %w", err)
	}

	return target, nil
}

// formatFrontmatter builds a YAML frontmatter block.
func formatFrontmatter(m Metadata) string {
	return "---\n" +
		"id: " + m.ID + "\n" +
		"context: " + m.Context + "\n" +
		"source_id: " + m.SourceID + "\n" +
		"source_url: " + m.SourceURL + "\n" +
		"question: " + yamlEscape(m.Question) + "\n" +
		"strategy: " + m.Strategy + "\n" +
		"extracted_at: " + m.ExtractedAt.UTC().Format(time.RFC3339) + "\n" +
		"---\n\n"
}

// yamlEscape wraps a string in quotes if it contains special YAML characters.
func yamlEscape(s string) string {
	for _, c := range s {
		if c == ':' || c == '#' || c == '\'' || c == '"' || c == '{' || c == '}' || c == '[' || c == ']' || c == ',' || c == '&' || c == '*' || c == '?' || c == '|' || c == '-' || c == '<' || c == '>' || c == '=' || c == '!' || c == '%' || c == '@' || c == '`' || c == '\n' {
			return `"` + escapeDoubleQuotes(s) + `"`
		}
	}
	return s
}

func escapeDoubleQuotes(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			result = append(result, '\\', '"')
		} else if s[i] == '\\' {
			result = append(result, '\\', '\\')
		} else {
			result = append(result, s[i])
		}
	}
	return string(result)
}
