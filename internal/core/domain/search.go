package domain

import "time"

// SearchFilter configures an article query. All fields are optional.
type SearchFilter struct {
	// Text is a full-text query matched against title and summary.
	Text string

	// Category restricts results to one product grouping.
	Category string

	// DateFrom and DateTo bound the article's sort date (effective date
	// when declared, otherwise the remote change date), inclusive.
	DateFrom *time.Time
	DateTo   *time.Time

	// Limit is the maximum number of results. Zero means the default.
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// DefaultSearchLimit is applied when a filter has no explicit limit.
const DefaultSearchLimit = 20
