package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// fakeSource is a scripted in-memory driven.RemoteSource.
type fakeSource struct {
	mu sync.Mutex

	refs    map[string]string // repoID -> head SHA
	refErrs map[string]error

	trees    map[string][]driven.TreeEntry // repoID -> entries
	treeErrs map[string]error

	blobs     map[string][]byte // blob SHA -> content
	fetchErrs map[string]error  // blob SHA -> error

	commits    map[string][]driven.Commit // repoID -> history, newest first
	commitErrs map[string]error

	oldest map[string]time.Time // repoID+"/"+path -> first commit time

	// failFetchAfter injects fetchErr on every FetchRaw/FetchFile call
	// beyond the given count. Zero disables.
	failFetchAfter int
	fetchErr       error

	// blockFetch, when non-nil, is received from before each fetch call.
	blockFetch chan struct{}

	fetchCalls  int
	remoteCalls int
}

var _ driven.RemoteSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		refs:       map[string]string{},
		refErrs:    map[string]error{},
		trees:      map[string][]driven.TreeEntry{},
		treeErrs:   map[string]error{},
		blobs:      map[string][]byte{},
		fetchErrs:  map[string]error{},
		commits:    map[string][]driven.Commit{},
		commitErrs: map[string]error{},
		oldest:     map[string]time.Time{},
	}
}

func (f *fakeSource) LatestRef(_ context.Context, repo domain.TrackedRepo) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	if err := f.refErrs[repo.ID]; err != nil {
		return "", err
	}
	return f.refs[repo.ID], nil
}

func (f *fakeSource) ListTree(_ context.Context, repo domain.TrackedRepo) ([]driven.TreeEntry, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	if err := f.treeErrs[repo.ID]; err != nil {
		return nil, "", err
	}
	return f.trees[repo.ID], f.refs[repo.ID], nil
}

func (f *fakeSource) FetchRaw(_ context.Context, _ domain.TrackedRepo, sha string) ([]byte, error) {
	if f.blockFetch != nil {
		<-f.blockFetch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	f.fetchCalls++
	if f.failFetchAfter > 0 && f.fetchCalls > f.failFetchAfter {
		return nil, f.fetchErr
	}
	if err := f.fetchErrs[sha]; err != nil {
		return nil, err
	}
	content, ok := f.blobs[sha]
	if !ok {
		return nil, fmt.Errorf("unknown blob %s", sha)
	}
	return content, nil
}

func (f *fakeSource) FetchFile(ctx context.Context, repo domain.TrackedRepo, path string) ([]byte, string, error) {
	f.mu.Lock()
	var sha string
	for _, entry := range f.trees[repo.ID] {
		if entry.Path == path {
			sha = entry.SHA
			break
		}
	}
	f.mu.Unlock()
	if sha == "" {
		return nil, "", fmt.Errorf("unknown file %s: %w", path, domain.ErrNotFound)
	}
	content, err := f.FetchRaw(ctx, repo, sha)
	return content, sha, err
}

func (f *fakeSource) ListCommitsSince(_ context.Context, repo domain.TrackedRepo, _ string, since time.Time) ([]driven.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	if err := f.commitErrs[repo.ID]; err != nil {
		return nil, err
	}
	var out []driven.Commit
	for _, commit := range f.commits[repo.ID] {
		if commit.Timestamp.After(since) {
			out = append(out, commit)
		}
	}
	return out, nil
}

func (f *fakeSource) OldestCommitTime(_ context.Context, repo domain.TrackedRepo, path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	return f.oldest[repo.ID+"/"+path], nil
}

// addFile registers a blob in the repository's tree.
func (f *fakeSource) addFile(repoID, path, sha, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trimmed := f.trees[repoID][:0]
	for _, entry := range f.trees[repoID] {
		if entry.Path != path {
			trimmed = append(trimmed, entry)
		}
	}
	f.trees[repoID] = append(trimmed, driven.TreeEntry{Path: path, SHA: sha, Size: len(content)})
	f.blobs[sha] = []byte(content)
}

func (f *fakeSource) fetchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}
