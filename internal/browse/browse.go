// Package browse holds the file browser logic shared by the surfaces:
// grouping by directory, filters, selection and route encoding.
package browse

import (
	"encoding/base64"
	"path"
	"slices"
	"strings"

	"reposcanner/internal/models"
)

// RootGroup is the group of files at the repository root.
const RootGroup = "/"

// ParentDirectory returns the group a path belongs to.
func ParentDirectory(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return RootGroup
	}
	return p[:i]
}

type Group struct {
	Directory string                 `json:"directory"`
	Files     []models.RepoFileEntry `json:"files"`
}

// GroupByDirectory groups files by parent directory, in the order each
// directory first appears.
func GroupByDirectory(files []models.RepoFileEntry) []Group {
	var groups []Group
	index := map[string]int{}
	for _, f := range files {
		dir := ParentDirectory(f.Path)
		i, ok := index[dir]
		if !ok {
			i = len(groups)
			index[dir] = i
			groups = append(groups, Group{Directory: dir})
		}
		groups[i].Files = append(groups[i].Files, f)
	}
	return groups
}

// Directories lists the groups of files in first-appearance order.
func Directories(files []models.RepoFileEntry) []string {
	var dirs []string
	for _, g := range GroupByDirectory(files) {
		dirs = append(dirs, g.Directory)
	}
	return dirs
}

type Filters struct {
	// Extension keeps files whose name ends with it. Empty keeps all.
	Extension string
	// Directories keeps files in one of these groups. Empty keeps all.
	Directories []string
}

// Apply returns the files that pass every filter.
func (f Filters) Apply(files []models.RepoFileEntry) []models.RepoFileEntry {
	var out []models.RepoFileEntry
	for _, file := range files {
		if len(f.Directories) > 0 && !slices.Contains(f.Directories, ParentDirectory(file.Path)) {
			continue
		}
		if f.Extension != "" && !strings.HasSuffix(file.Name, f.Extension) {
			continue
		}
		out = append(out, file)
	}
	return out
}

// ToggleDirectory adds dir to the directory filter, or removes it when it is
// already there.
func (f Filters) ToggleDirectory(dir string) Filters {
	if i := slices.Index(f.Directories, dir); i >= 0 {
		f.Directories = slices.Delete(slices.Clone(f.Directories), i, i+1)
		return f
	}
	f.Directories = append(slices.Clone(f.Directories), dir)
	return f
}

// Toggle flips the selection of the file at p.
func Toggle(files []models.RepoFileEntry, p string) {
	for i := range files {
		if files[i].Path == p {
			files[i].Selected = !files[i].Selected
		}
	}
}

// SelectAll sets the selection of every file.
func SelectAll(files []models.RepoFileEntry, selected bool) {
	for i := range files {
		files[i].Selected = selected
	}
}

// SelectPaths selects exactly the files whose path is listed and reports
// the listed paths that are not in files.
func SelectPaths(files []models.RepoFileEntry, paths []string) (missing []string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	for i := range files {
		files[i].Selected = want[files[i].Path]
		delete(want, files[i].Path)
	}
	for _, p := range paths {
		if want[p] {
			missing = append(missing, p)
			delete(want, p)
		}
	}
	return missing
}

func Selected(files []models.RepoFileEntry) []models.RepoFileEntry {
	var out []models.RepoFileEntry
	for _, f := range files {
		if f.Selected {
			out = append(out, f)
		}
	}
	return out
}

func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// IsImage reports files that are opened by URL instead of the editor.
func IsImage(name string) bool {
	switch path.Ext(name) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// EncodeRepoURL turns a repository URL into a route segment.
func EncodeRepoURL(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

// DecodeRepoURL reverses EncodeRepoURL. Standard and URL-safe alphabets are
// accepted, padded or not. Anything that does not decode to a URL means no
// repository is selected.
func DecodeRepoURL(segment string) (string, bool) {
	segment = strings.TrimRight(strings.TrimSpace(segment), "=")
	if segment == "" {
		return "", false
	}

	segment = strings.NewReplacer("+", "-", "/", "_").Replace(segment)
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return "", false
	}

	url := string(raw)
	if !strings.Contains(url, "://") && !strings.HasPrefix(url, "github.com/") {
		return "", false
	}
	return url, true
}
