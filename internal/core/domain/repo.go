package domain

import "time"

// TrackedRepo describes one documentation repository the sync engine watches.
type TrackedRepo struct {
	// ID is the short identifier used in article keys and watermarks.
	ID string

	// Owner is the GitHub organisation or user.
	Owner string

	// Name is the repository name.
	Name string

	// Branch is the branch to sync from. Empty means the default branch.
	Branch string

	// PathPrefix restricts syncing to files under this directory.
	PathPrefix string

	// FilePattern is a glob matched against the file base name.
	// Files that do not match never reach the extractor.
	FilePattern string

	// Category is the product grouping assigned to articles from this repo.
	Category string
}

// FullName returns the "owner/name" form used by the GitHub API.
func (r TrackedRepo) FullName() string {
	return r.Owner + "/" + r.Name
}

// Watermark is the last-known head pointer for a whole repository.
// It only advances after a pass over that repository with no processing
// errors and no work deferred, so failed files are retried next cycle.
type Watermark struct {
	// RepoID identifies the tracked repository.
	RepoID string

	// LatestRef is the last-seen head commit SHA.
	LatestRef string

	// UpdatedAt is when the watermark was last advanced.
	UpdatedAt time.Time
}

// DefaultTrackedRepos is the built-in set of Power Platform documentation
// repositories. A config file may override or extend this list.
func DefaultTrackedRepos() []TrackedRepo {
	return []TrackedRepo{
		{
			ID:          "power-platform",
			Owner:       "MicrosoftDocs",
			Name:        "power-platform",
			PathPrefix:  "power-platform",
			FilePattern: "whats-new*.md",
			Category:    "Power Platform",
		},
		{
			ID:          "power-apps",
			Owner:       "MicrosoftDocs",
			Name:        "powerapps-docs",
			PathPrefix:  "powerapps-docs",
			FilePattern: "whats-new*.md",
			Category:    "Power Apps",
		},
		{
			ID:          "power-automate",
			Owner:       "MicrosoftDocs",
			Name:        "power-automate-docs",
			PathPrefix:  "articles",
			FilePattern: "whats-new*.md",
			Category:    "Power Automate",
		},
		{
			ID:          "power-pages",
			Owner:       "MicrosoftDocs",
			Name:        "power-pages-docs",
			PathPrefix:  "power-pages",
			FilePattern: "whats-new*.md",
			Category:    "Power Pages",
		},
	}
}
