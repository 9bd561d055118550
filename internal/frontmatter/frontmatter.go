// Package frontmatter reads and writes the YAML metadata block at the top of
// Markdown files.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"reposcanner/internal/models"
)

const delimiter = "---"

// Document is a Markdown file split into its metadata and body.
type Document struct {
	Frontmatter map[string]any
	Content     string
}

// Extract splits text into frontmatter and body. Text without a complete
// leading block comes back unchanged with an empty mapping.
func Extract(text string) (Document, error) {
	block, rest, ok := splitBlock(text)
	if !ok {
		return Document{Frontmatter: map[string]any{}, Content: text}, nil
	}

	var raw any
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return Document{}, fmt.Errorf("extract frontmatter: %w: %w", models.ErrParse, err)
	}

	fm := map[string]any{}
	switch v := raw.(type) {
	case nil:
	case map[string]any:
		fm = v
	default:
		return Document{}, fmt.Errorf("extract frontmatter: %w: block is a %T, not a mapping", models.ErrParse, raw)
	}

	return Document{Frontmatter: fm, Content: rest}, nil
}

// Insert serializes fm as a new leading block for content. Any block content
// already has is replaced, not merged.
func Insert(content string, fm map[string]any) (string, error) {
	if fm == nil {
		fm = map[string]any{}
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("insert frontmatter: %w", err)
	}

	if _, rest, ok := splitBlock(content); ok {
		content = rest
	}

	var b strings.Builder
	b.Grow(len(out) + len(content) + 8)
	b.WriteString(delimiter + "\n")
	b.Write(out)
	b.WriteString(delimiter + "\n")
	b.WriteString(content)
	return b.String(), nil
}

// splitBlock finds a leading block opened by a "---" line and closed by the
// first following "---" or "..." line. It returns the YAML between the
// delimiters and the text after the closing line.
func splitBlock(text string) (block, rest string, ok bool) {
	first, pos, found := line(text, 0)
	if !found || first != delimiter {
		return "", text, false
	}

	start := pos
	for pos < len(text) {
		l, next, _ := line(text, pos)
		if l == delimiter || l == "..." {
			return text[start:pos], text[next:], true
		}
		pos = next
	}
	return "", text, false
}

// line returns the line starting at pos without its terminator and trailing
// blanks, the offset of the next line, and whether a newline ended it.
func line(text string, pos int) (string, int, bool) {
	end := strings.IndexByte(text[pos:], '\n')
	if end < 0 {
		return strings.TrimRight(text[pos:], " \t\r"), len(text), false
	}
	return strings.TrimRight(text[pos:pos+end], " \t\r"), pos + end + 1, true
}
