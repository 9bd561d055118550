package github

type Event struct {
	Name  string
	Label string
}

// CacheEvents are the webhook events that make a cached snapshot stale.
var CacheEvents = []Event{
	{Name: "push", Label: "Code pushed"},
	{Name: "create", Label: "Branch or tag created"},
	{Name: "delete", Label: "Branch or tag deleted"},
	{Name: "repository", Label: "Repository renamed, transferred or deleted"},
}

func IsCacheEvent(name string) bool {
	for _, e := range CacheEvents {
		if e.Name == name {
			return true
		}
	}
	return false
}
