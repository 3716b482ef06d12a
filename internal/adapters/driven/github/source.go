package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// maxBlobSize caps fetched files at 1MB. Docs articles are far smaller;
// anything bigger is not an article.
const maxBlobSize = 1024 * 1024

// Source implements the remote source port against the GitHub REST API.
type Source struct {
	client *Client
}

var _ driven.RemoteSource = (*Source)(nil)

// NewSource creates a GitHub-backed remote source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func branchOf(repo domain.TrackedRepo) string {
	if repo.Branch != "" {
		return repo.Branch
	}
	return "main"
}

// LatestRef returns the head commit SHA of the repository's sync branch.
func (s *Source) LatestRef(ctx context.Context, repo domain.TrackedRepo) (string, error) {
	var ref *gh.Reference
	err := s.client.do(ctx, "get ref "+repo.FullName(), func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		ref, resp, err = s.client.gh.Git.GetRef(ctx, repo.Owner, repo.Name, "heads/"+branchOf(repo))
		return resp, err
	})
	if err != nil {
		return "", err
	}
	return ref.GetObject().GetSHA(), nil
}

// ListTree lists all blobs in the repository at the branch head. The
// listing is anchored to the head commit SHA so the returned ref matches
// what LatestRef reports for the same state.
func (s *Source) ListTree(ctx context.Context, repo domain.TrackedRepo) ([]driven.TreeEntry, string, error) {
	head, err := s.LatestRef(ctx, repo)
	if err != nil {
		return nil, "", err
	}

	var tree *gh.Tree
	err = s.client.do(ctx, "get tree "+repo.FullName(), func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		tree, resp, err = s.client.gh.Git.GetTree(ctx, repo.Owner, repo.Name, head, true)
		return resp, err
	})
	if err != nil {
		return nil, "", err
	}

	// A truncated tree would silently drop files, which reads as
	// deletions downstream. Fail instead.
	if tree.GetTruncated() {
		return nil, "", fmt.Errorf("tree %s: %w", repo.FullName(), domain.ErrTruncatedListing)
	}

	entries := make([]driven.TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		if entry.GetSize() > maxBlobSize {
			continue
		}
		entries = append(entries, driven.TreeEntry{
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
			Size: entry.GetSize(),
		})
	}

	return entries, head, nil
}

// FetchRaw fetches and decodes a blob by SHA.
func (s *Source) FetchRaw(ctx context.Context, repo domain.TrackedRepo, sha string) ([]byte, error) {
	var blob *gh.Blob
	err := s.client.do(ctx, "get blob "+sha, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		blob, resp, err = s.client.gh.Git.GetBlob(ctx, repo.Owner, repo.Name, sha)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return decodeBlob(blob)
}

// FetchFile fetches a file by path at the branch head, returning its
// content and blob SHA.
func (s *Source) FetchFile(ctx context.Context, repo domain.TrackedRepo, path string) ([]byte, string, error) {
	var content *gh.RepositoryContent
	op := fmt.Sprintf("get contents %s/%s", repo.FullName(), path)
	err := s.client.do(ctx, op, func(ctx context.Context) (*gh.Response, error) {
		opts := &gh.RepositoryContentGetOptions{Ref: branchOf(repo)}
		var resp *gh.Response
		var err error
		content, _, resp, err = s.client.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, opts)
		return resp, err
	})
	if err != nil {
		return nil, "", err
	}
	if content == nil {
		return nil, "", fmt.Errorf("%s: path is a directory: %w", op, domain.ErrNotFound)
	}

	decoded, err := content.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("%s: decode: %w", op, err)
	}
	return []byte(decoded), content.GetSHA(), nil
}

// ListCommitsSince lists commits touching path since the given time,
// newest first, with the files each commit changed.
func (s *Source) ListCommitsSince(
	ctx context.Context, repo domain.TrackedRepo, path string, since time.Time,
) ([]driven.Commit, error) {
	opts := &gh.CommitsListOptions{
		SHA:         branchOf(repo),
		Path:        path,
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []*gh.RepositoryCommit
	for {
		var page []*gh.RepositoryCommit
		var next int
		err := s.client.do(ctx, "list commits "+repo.FullName(), func(ctx context.Context) (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = s.client.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == 0 {
			break
		}
		opts.Page = next
	}

	commits := make([]driven.Commit, 0, len(all))
	for _, rc := range all {
		// The listing omits per-commit files; each commit detail carries
		// them.
		paths, err := s.commitFiles(ctx, repo, rc.GetSHA())
		if err != nil {
			return nil, err
		}
		commits = append(commits, driven.Commit{
			SHA:          rc.GetSHA(),
			Timestamp:    rc.GetCommit().GetCommitter().GetDate().Time,
			ChangedPaths: paths,
		})
	}
	return commits, nil
}

// commitFiles returns the file paths touched by one commit.
func (s *Source) commitFiles(ctx context.Context, repo domain.TrackedRepo, sha string) ([]string, error) {
	var detail *gh.RepositoryCommit
	err := s.client.do(ctx, "get commit "+sha, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		detail, resp, err = s.client.gh.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(detail.Files))
	for _, f := range detail.Files {
		if f.GetFilename() != "" {
			paths = append(paths, f.GetFilename())
		}
	}
	return paths, nil
}

// OldestCommitTime returns the timestamp of the first commit that ever
// touched path. The history is paged newest first, so the oldest commit
// sits on the last page; one probe call finds that page number and a
// second call reads it.
func (s *Source) OldestCommitTime(ctx context.Context, repo domain.TrackedRepo, path string) (time.Time, error) {
	opts := &gh.CommitsListOptions{
		SHA:         branchOf(repo),
		Path:        path,
		ListOptions: gh.ListOptions{PerPage: 1},
	}

	page, lastPage, err := s.listCommitsPage(ctx, repo, opts)
	if err != nil {
		return time.Time{}, err
	}
	if lastPage > 1 {
		opts.Page = lastPage
		page, _, err = s.listCommitsPage(ctx, repo, opts)
		if err != nil {
			return time.Time{}, err
		}
	}
	if len(page) == 0 {
		return time.Time{}, nil
	}
	return page[len(page)-1].GetCommit().GetCommitter().GetDate().Time, nil
}

func (s *Source) listCommitsPage(
	ctx context.Context, repo domain.TrackedRepo, opts *gh.CommitsListOptions,
) ([]*gh.RepositoryCommit, int, error) {
	var page []*gh.RepositoryCommit
	var lastPage int
	err := s.client.do(ctx, "list commits "+repo.FullName(), func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		page, resp, err = s.client.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		if resp != nil {
			lastPage = resp.LastPage
		}
		return resp, err
	})
	if err != nil {
		return nil, 0, err
	}
	return page, lastPage, nil
}

// decodeBlob decodes a blob's content, which the API base64-encodes.
func decodeBlob(blob *gh.Blob) ([]byte, error) {
	if blob.GetEncoding() == "base64" {
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(content)
	}
	return []byte(blob.GetContent()), nil
}
