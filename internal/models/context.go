package models

// EditContext remembers which file a Telegram message shows, so a reply to
// that message can be committed back to the same path.
type EditContext struct {
	RepoURL string
	Path    string
	Branch  string
}

// DescribeJob is a bulk description run waiting for confirmation.
type DescribeJob struct {
	UserID         int64
	RepoURL        string
	Branch         string
	Paths          []string
	MaxLength      int
	GenerateForAll bool
	CommitMessage  string
}
