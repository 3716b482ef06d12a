package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// SyncStrategy identifies which change-detection strategy selected the work.
type SyncStrategy string

const (
	// StrategySkip means the repository pointer matched the watermark.
	StrategySkip SyncStrategy = "skip"

	// StrategyIncremental means commit history since the last successful
	// sync selected the changed files.
	StrategyIncremental SyncStrategy = "incremental"

	// StrategyFullTree means every eligible file was diffed against its
	// stored change token.
	StrategyFullTree SyncStrategy = "full-tree"
)

// Candidate is one file selected for fetching and extraction.
type Candidate struct {
	Repo  domain.TrackedRepo
	Path  string
	SHA   string // remote blob SHA when known (full-tree); empty for commit-derived candidates
	MTime time.Time
}

// RepoPlan is the per-repository outcome of change detection.
type RepoPlan struct {
	Repo       domain.TrackedRepo
	Strategy   SyncStrategy
	LatestRef  string
	Candidates []Candidate

	// Err is set when detection itself failed for this repository.
	Err error
}

// ChangeDetector decides what each repository needs synced, choosing the
// cheapest strategy that still yields correct results.
type ChangeDetector struct {
	source     driven.RemoteSource
	watermarks driven.WatermarkStore
	articles   driven.ArticleStore
}

// NewChangeDetector creates a change detector.
func NewChangeDetector(
	source driven.RemoteSource,
	watermarks driven.WatermarkStore,
	articles driven.ArticleStore,
) *ChangeDetector {
	return &ChangeDetector{
		source:     source,
		watermarks: watermarks,
		articles:   articles,
	}
}

// PointerCheck compares each repository's head pointer against the stored
// watermark. The boolean result is only trusted when the head pointer was
// obtainable for every repository: a partial check must not cause any
// repository's sync to be skipped.
func (d *ChangeDetector) PointerCheck(
	ctx context.Context, repos []domain.TrackedRepo,
) (allUnchanged bool, refs map[string]string, err error) {
	refs = make(map[string]string, len(repos))
	allUnchanged = true

	for _, repo := range repos {
		ref, refErr := d.source.LatestRef(ctx, repo)
		if refErr != nil {
			return false, nil, fmt.Errorf("latest ref %s: %w", repo.ID, refErr)
		}
		refs[repo.ID] = ref

		mark, markErr := d.watermarks.Get(ctx, repo.ID)
		if markErr != nil {
			if errors.Is(markErr, domain.ErrNotFound) {
				allUnchanged = false
				continue
			}
			return false, nil, fmt.Errorf("get watermark %s: %w", repo.ID, markErr)
		}
		if mark.LatestRef != ref {
			allUnchanged = false
		}
	}

	return allUnchanged, refs, nil
}

// Plan selects candidates for one repository. When incremental is true and
// a previous successful sync time exists, commit history since that time is
// used; otherwise the full tree is diffed against stored change tokens.
func (d *ChangeDetector) Plan(
	ctx context.Context,
	repo domain.TrackedRepo,
	since time.Time,
	incremental bool,
) RepoPlan {
	if incremental && !since.IsZero() {
		plan := d.planIncremental(ctx, repo, since)
		if plan.Err == nil {
			return plan
		}
		// Quota and credential failures must not burn more budget on a
		// fallback.
		if errors.Is(plan.Err, domain.ErrRateLimited) || errors.Is(plan.Err, domain.ErrUnauthorized) {
			return plan
		}
		logger.Warn("incremental detection failed for %s, falling back to full tree: %v", repo.ID, plan.Err)
	}
	return d.planFullTree(ctx, repo)
}

// planIncremental derives candidates from commit history since the
// watermark time.
func (d *ChangeDetector) planIncremental(
	ctx context.Context, repo domain.TrackedRepo, since time.Time,
) RepoPlan {
	plan := RepoPlan{Repo: repo, Strategy: StrategyIncremental}

	commits, err := d.source.ListCommitsSince(ctx, repo, repo.PathPrefix, since)
	if err != nil {
		plan.Err = fmt.Errorf("list commits %s: %w", repo.ID, err)
		return plan
	}

	// Newest commit wins when the same path appears in several commits.
	latest := make(map[string]time.Time)
	for _, commit := range commits {
		for _, changed := range commit.ChangedPaths {
			if !eligiblePath(repo, changed) {
				continue
			}
			if commit.Timestamp.After(latest[changed]) {
				latest[changed] = commit.Timestamp
			}
		}
	}

	for p, mtime := range latest {
		plan.Candidates = append(plan.Candidates, Candidate{
			Repo:  repo,
			Path:  p,
			MTime: mtime,
		})
	}
	sortCandidates(plan.Candidates)
	return plan
}

// planFullTree lists every eligible file and selects those whose remote
// version differs from the stored change token, plus first-seen files.
func (d *ChangeDetector) planFullTree(ctx context.Context, repo domain.TrackedRepo) RepoPlan {
	plan := RepoPlan{Repo: repo, Strategy: StrategyFullTree}

	entries, ref, err := d.source.ListTree(ctx, repo)
	if err != nil {
		plan.Err = fmt.Errorf("list tree %s: %w", repo.ID, err)
		return plan
	}
	plan.LatestRef = ref

	for _, entry := range entries {
		if !eligiblePath(repo, entry.Path) {
			continue
		}

		key := domain.ArticleKey(repo.ID, entry.Path)
		stored, err := d.articles.GetByKey(ctx, key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			plan.Err = fmt.Errorf("get article %s: %w", key, err)
			return plan
		}
		// Files present locally but absent from the remote listing are
		// neither updated nor deleted here; deletion policy is out of
		// this component's responsibility.
		if stored != nil && stored.ChangeToken == entry.SHA {
			continue
		}

		plan.Candidates = append(plan.Candidates, Candidate{
			Repo: repo,
			Path: entry.Path,
			SHA:  entry.SHA,
		})
	}
	sortCandidates(plan.Candidates)
	return plan
}

// eligiblePath applies the repository's directory prefix and file-name
// filter. Non-matching files never reach the extractor.
func eligiblePath(repo domain.TrackedRepo, p string) bool {
	if repo.PathPrefix != "" && !strings.HasPrefix(p, repo.PathPrefix+"/") && p != repo.PathPrefix {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(p), ".md") {
		return false
	}
	if repo.FilePattern != "" {
		matched, err := path.Match(repo.FilePattern, path.Base(p))
		if err != nil || !matched {
			return false
		}
	}
	return true
}

// sortCandidates orders candidates by path for deterministic runs.
func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool { return cands[i].Path < cands[j].Path })
}
