package driven

import (
	"context"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// TreeEntry is one file in a repository listing.
type TreeEntry struct {
	// Path is the file path within the repository.
	Path string

	// SHA is the blob version identifier, used as the change token.
	SHA string

	// Size is the file size in bytes.
	Size int
}

// Commit is one entry in a repository's history.
type Commit struct {
	// SHA identifies the commit.
	SHA string

	// Timestamp is the commit time.
	Timestamp time.Time

	// ChangedPaths lists the files touched by the commit.
	ChangedPaths []string
}

// RemoteSource talks to the remote repository-hosting API. Implementations
// are stateless beyond network I/O and apply their own retry and
// rate-limit handling; rate-limit and authorisation failures propagate
// immediately as distinct error kinds rather than being retried.
type RemoteSource interface {
	// LatestRef returns the head commit SHA of the repository's sync branch.
	LatestRef(ctx context.Context, repo domain.TrackedRepo) (string, error)

	// ListTree lists all blobs under the repository recursively, together
	// with the ref the listing was taken at. A listing too large to return
	// completely fails with domain.ErrTruncatedListing, never partial data.
	ListTree(ctx context.Context, repo domain.TrackedRepo) ([]TreeEntry, string, error)

	// FetchRaw fetches the raw bytes of a blob by SHA.
	FetchRaw(ctx context.Context, repo domain.TrackedRepo, sha string) ([]byte, error)

	// FetchFile fetches a file by path at the sync branch head, returning
	// its bytes and blob SHA. Used for commit-derived candidates where no
	// tree listing supplied the SHA.
	FetchFile(ctx context.Context, repo domain.TrackedRepo, path string) ([]byte, string, error)

	// ListCommitsSince lists commits touching path (or the whole repo when
	// path is empty) since the given time, newest first.
	ListCommitsSince(ctx context.Context, repo domain.TrackedRepo, path string, since time.Time) ([]Commit, error)

	// OldestCommitTime returns the timestamp of the first commit that ever
	// touched path. Expensive for long histories: implementations jump to
	// the last page of the commit listing.
	OldestCommitTime(ctx context.Context, repo domain.TrackedRepo, path string) (time.Time, error)
}
