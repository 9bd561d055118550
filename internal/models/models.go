package models

// RepoFileEntry is one file of a repository snapshot. Directories never
// appear; their descendants are flattened into the list.
type RepoFileEntry struct {
	Name        string  `json:"name" bson:"name"`
	Path        string  `json:"path" bson:"path"`
	Type        string  `json:"type" bson:"type"`
	DownloadURL *string `json:"download_url" bson:"download_url"`
	Selected    bool    `json:"selected" bson:"selected"`
}

// GetDownloadURL returns the raw URL or "" when the entry has none.
func (e RepoFileEntry) GetDownloadURL() string {
	if e.DownloadURL == nil {
		return ""
	}
	return *e.DownloadURL
}

type BranchCommit struct {
	SHA string `json:"sha" bson:"sha"`
	URL string `json:"url" bson:"url"`
}

type Branch struct {
	Name     string       `json:"name" bson:"name"`
	Commit   BranchCommit `json:"commit" bson:"commit"`
	Selected bool         `json:"selected" bson:"selected"`
}

// Repository is the snapshot persisted under "repo-<url>".
type Repository struct {
	Owner    string          `json:"owner" bson:"owner"`
	URL      string          `json:"url" bson:"url"`
	Branch   string          `json:"branch" bson:"branch"`
	Files    []RepoFileEntry `json:"files" bson:"files"`
	Branches []Branch        `json:"branches" bson:"branches"`
}

// IsZero reports whether no repository is loaded.
func (r Repository) IsZero() bool {
	return r.URL == "" && r.Owner == ""
}

// FindFile returns the entry with the given path.
func (r Repository) FindFile(path string) (RepoFileEntry, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return RepoFileEntry{}, false
}

// AuthState is persisted under "auth".
type AuthState struct {
	Token        string `json:"token" bson:"token"`
	RigobotToken string `json:"rigobot_token" bson:"rigobot_token"`
}

type UserProfile struct {
	Name      string `json:"name" bson:"name"`
	AvatarURL string `json:"avatar_url" bson:"avatar_url"`
	Login     string `json:"login" bson:"login"`
}
