package frontmatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposcanner/internal/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantFM      map[string]any
		wantContent string
	}{
		{
			name:        "Block and body",
			text:        "---\ntitle: Intro\ndescription: short\n---\n# Heading\n",
			wantFM:      map[string]any{"title": "Intro", "description": "short"},
			wantContent: "# Heading\n",
		},
		{
			name:        "No block",
			text:        "# Heading\n\ntext\n",
			wantFM:      map[string]any{},
			wantContent: "# Heading\n\ntext\n",
		},
		{
			name:        "Unterminated block",
			text:        "---\ntitle: Intro\n# Heading\n",
			wantFM:      map[string]any{},
			wantContent: "---\ntitle: Intro\n# Heading\n",
		},
		{
			name:        "Dots close the block",
			text:        "---\ntitle: Intro\n...\nbody",
			wantFM:      map[string]any{"title": "Intro"},
			wantContent: "body",
		},
		{
			name:        "CRLF line endings",
			text:        "---\r\ntitle: Intro\r\n---\r\nbody\r\n",
			wantFM:      map[string]any{"title": "Intro"},
			wantContent: "body\r\n",
		},
		{
			name:        "Empty block",
			text:        "---\n---\nbody",
			wantFM:      map[string]any{},
			wantContent: "body",
		},
		{
			name:        "Horizontal rule later in the body",
			text:        "intro\n---\nmore",
			wantFM:      map[string]any{},
			wantContent: "intro\n---\nmore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Extract(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFM, doc.Frontmatter)
			assert.Equal(t, tt.wantContent, doc.Content)
		})
	}
}

func TestExtractParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Malformed YAML", text: "---\ntitle: [unclosed\n---\nbody"},
		{name: "Scalar block", text: "---\njust a sentence\n---\nbody"},
		{name: "Sequence block", text: "---\n- a\n- b\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.text)
			if !errors.Is(err, models.ErrParse) {
				t.Errorf("Extract() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	fm := map[string]any{
		"title":       "Getting started",
		"description": "How to install the tool",
		"subtitle":    "Install",
		"order":       3,
		"draft":       false,
		"tags":        []any{"go", "yaml"},
		"author":      map[string]any{"name": "Ana", "handle": "ana"},
	}
	body := "# Getting started\n\nRun the installer.\n"

	out, err := Insert(body, fm)
	require.NoError(t, err)

	doc, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, fm, doc.Frontmatter)
	assert.Equal(t, body, doc.Content)
}

func TestInsertReplacesExistingBlock(t *testing.T) {
	original := "---\ntitle: Old\ndescription: stale\n---\nbody\n"

	doc, err := Extract(original)
	require.NoError(t, err)
	doc.Frontmatter["description"] = "fresh"

	once, err := Insert(original, doc.Frontmatter)
	require.NoError(t, err)
	twice, err := Insert(once, doc.Frontmatter)
	require.NoError(t, err)

	assert.Equal(t, once, twice, "inserting again must not nest blocks")
	assert.Equal(t, 2, strings.Count(twice, "---\n"))

	got, err := Extract(twice)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Old", "description": "fresh"}, got.Frontmatter)
	assert.Equal(t, "body\n", got.Content)
}

func TestInsertIsNotAMerge(t *testing.T) {
	out, err := Insert("---\ntitle: Old\nauthor: ana\n---\nbody", map[string]any{"title": "New"})
	require.NoError(t, err)

	doc, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "New"}, doc.Frontmatter)
}
