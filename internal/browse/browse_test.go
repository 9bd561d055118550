package browse

import (
	"encoding/base64"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"

	"reposcanner/internal/models"
)

func entries(paths ...string) []models.RepoFileEntry {
	var files []models.RepoFileEntry
	for _, p := range paths {
		files = append(files, models.RepoFileEntry{Name: path.Base(p), Path: p, Type: "file"})
	}
	return files
}

func TestParentDirectory(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "README.md", want: "/"},
		{path: "docs/a.md", want: "docs"},
		{path: "docs/guide/b.md", want: "docs/guide"},
	}
	for _, tt := range tests {
		if got := ParentDirectory(tt.path); got != tt.want {
			t.Errorf("ParentDirectory(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGroupByDirectory(t *testing.T) {
	files := entries("README.md", "docs/guide/b.md", "docs/a.md", "z.txt", "docs/c.png")

	groups := GroupByDirectory(files)
	var dirs []string
	var sizes []int
	for _, g := range groups {
		dirs = append(dirs, g.Directory)
		sizes = append(sizes, len(g.Files))
	}
	assert.Equal(t, []string{"/", "docs/guide", "docs"}, dirs)
	assert.Equal(t, []int{2, 1, 2}, sizes)
	assert.Equal(t, dirs, Directories(files))
}

func TestFilters(t *testing.T) {
	files := entries("README.md", "docs/a.md", "docs/c.png", "docs/guide/b.md")

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{name: "No filters", filters: Filters{}, want: []string{"README.md", "docs/a.md", "docs/c.png", "docs/guide/b.md"}},
		{name: "Extension", filters: Filters{Extension: ".md"}, want: []string{"README.md", "docs/a.md", "docs/guide/b.md"}},
		{name: "Directory", filters: Filters{Directories: []string{"docs"}}, want: []string{"docs/a.md", "docs/c.png"}},
		{name: "Both", filters: Filters{Extension: ".md", Directories: []string{"docs", "/"}}, want: []string{"README.md", "docs/a.md"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range tt.filters.Apply(files) {
				got = append(got, f.Path)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToggleDirectory(t *testing.T) {
	f := Filters{}.ToggleDirectory("docs").ToggleDirectory("/")
	assert.Equal(t, []string{"docs", "/"}, f.Directories)

	f = f.ToggleDirectory("docs")
	assert.Equal(t, []string{"/"}, f.Directories)
}

func TestSelection(t *testing.T) {
	files := entries("README.md", "docs/a.md", "docs/b.md")

	Toggle(files, "docs/a.md")
	assert.Len(t, Selected(files), 1)
	Toggle(files, "docs/a.md")
	assert.Empty(t, Selected(files))

	SelectAll(files, true)
	assert.Len(t, Selected(files), 3)

	missing := SelectPaths(files, []string{"docs/b.md", "nope.md"})
	assert.Equal(t, []string{"nope.md"}, missing)
	selected := Selected(files)
	assert.Len(t, selected, 1)
	assert.Equal(t, "docs/b.md", selected[0].Path)
}

func TestFileKinds(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.True(t, IsMarkdown("B.MARKDOWN"))
	assert.False(t, IsMarkdown("a.mdx"))
	assert.True(t, IsImage("logo.png"))
	assert.True(t, IsImage("photo.jpeg"))
	assert.False(t, IsImage("icon.svg"))
}

func TestRepoURLRoute(t *testing.T) {
	const url = "https://github.com/acme/widgets?x=1"

	got, ok := DecodeRepoURL(EncodeRepoURL(url))
	assert.True(t, ok)
	assert.Equal(t, url, got)

	tests := []struct {
		name    string
		segment string
		want    string
		ok      bool
	}{
		{name: "Standard padded", segment: base64.StdEncoding.EncodeToString([]byte(url)), want: url, ok: true},
		{name: "URL-safe padded", segment: base64.URLEncoding.EncodeToString([]byte(url)), want: url, ok: true},
		{name: "Missing", segment: "", ok: false},
		{name: "Malformed", segment: "%%%not-base64", ok: false},
		{name: "Not a URL", segment: base64.StdEncoding.EncodeToString([]byte("hello")), ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeRepoURL(tt.segment)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
