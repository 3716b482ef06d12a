package domain

import "time"

// EffectiveDateLayout is the canonical stored representation for author-declared
// publish dates. All accepted input formats normalise to this single layout.
const EffectiveDateLayout = "2006-01-02"

// Article represents one cached "what's new" article, keyed by repository + path.
type Article struct {
	// Key is the stable identifier: "<repoID>/<path>". It never changes for
	// a given file's lifetime.
	Key string

	// RepoID identifies the tracked repository the article came from.
	RepoID string

	// Path is the file path within the repository.
	Path string

	// Title is the extracted human-readable title.
	Title string

	// Summary is the extracted short description.
	Summary string

	// Category is the product grouping derived from the tracked repository.
	// Re-derived on every sync, not user-editable.
	Category string

	// EffectiveDate is the author-declared publish date, when present.
	// Stored date-only in UTC; see EffectiveDateLayout.
	EffectiveDate *time.Time

	// ChangeToken is the opaque remote version marker (Git blob SHA).
	// Updated on every successful refresh of the record.
	ChangeToken string

	// LastChangeAt is when the remote source last reports the file changed.
	LastChangeAt time.Time

	// FirstSeenAt is set on first insert and never overwritten afterwards.
	FirstSeenAt time.Time

	// SourceURL is where raw bytes are fetched from.
	SourceURL string

	// CanonicalURL is the display/link location for the article.
	CanonicalURL string

	// UpdatedAt is when the local record was last written.
	UpdatedAt time.Time
}

// Merge applies a freshly extracted article on top of an existing record.
// Every field comes from the incoming article except FirstSeenAt, which
// keeps the earliest known value. The receiver is not modified.
func (a Article) Merge(existing *Article) Article {
	merged := a
	if existing != nil && !existing.FirstSeenAt.IsZero() {
		merged.FirstSeenAt = existing.FirstSeenAt
	}
	return merged
}

// SortDate is the date used for ordering and range filtering: the effective
// date when declared, otherwise the remote change timestamp.
func (a Article) SortDate() time.Time {
	if a.EffectiveDate != nil {
		return *a.EffectiveDate
	}
	return a.LastChangeAt
}

// ArticleKey builds the stable record key for a file.
func ArticleKey(repoID, path string) string {
	return repoID + "/" + path
}
