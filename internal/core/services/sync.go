package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driving"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncRunner = (*SyncOrchestrator)(nil)

const (
	// DefaultMinSyncInterval is the minimum gap between non-forced runs.
	// Protects the remote rate budget against rapid re-triggers.
	DefaultMinSyncInterval = 5 * time.Minute

	// DefaultFetchConcurrency bounds concurrent blob fetches per batch.
	DefaultFetchConcurrency = 5
)

// OrchestratorConfig tunes the sync orchestrator.
type OrchestratorConfig struct {
	// MinSyncInterval is the minimum gap between non-forced runs.
	MinSyncInterval time.Duration

	// FetchConcurrency bounds concurrent remote fetches per batch.
	FetchConcurrency int

	// DefaultMaxFiles caps files processed per run when a trigger does
	// not set its own cap. Zero means unbounded.
	DefaultMaxFiles int

	// ResolveFirstPublished backfills a missing effective date from the
	// oldest commit that touched the file. Expensive for long histories
	// (last-page jump per file); disabled by default.
	ResolveFirstPublished bool
}

// inflightRun lets a concurrent trigger join a run already in progress.
type inflightRun struct {
	done   chan struct{}
	result domain.SyncResult
}

// SyncOrchestrator coordinates one sync run across the tracked
// repositories. It exclusively owns checkpoint and watermark writes.
type SyncOrchestrator struct {
	source      driven.RemoteSource
	articles    driven.ArticleStore
	watermarks  driven.WatermarkStore
	checkpoints driven.CheckpointStore
	detector    *ChangeDetector
	repos       []domain.TrackedRepo
	cfg         OrchestratorConfig

	mu       sync.Mutex
	inflight *inflightRun
}

// NewSyncOrchestrator creates a sync orchestrator for a fixed set of
// tracked repositories.
func NewSyncOrchestrator(
	source driven.RemoteSource,
	articles driven.ArticleStore,
	watermarks driven.WatermarkStore,
	checkpoints driven.CheckpointStore,
	repos []domain.TrackedRepo,
	cfg OrchestratorConfig,
) *SyncOrchestrator {
	if cfg.MinSyncInterval <= 0 {
		cfg.MinSyncInterval = DefaultMinSyncInterval
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = DefaultFetchConcurrency
	}
	return &SyncOrchestrator{
		source:      source,
		articles:    articles,
		watermarks:  watermarks,
		checkpoints: checkpoints,
		detector:    NewChangeDetector(source, watermarks, articles),
		repos:       repos,
		cfg:         cfg,
	}
}

// Running reports whether a run is currently in flight.
func (o *SyncOrchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight != nil
}

// RunSync executes one sync run. A trigger arriving while a run is in
// flight blocks until that run finishes and returns its result instead of
// starting a duplicate; writes never interleave.
func (o *SyncOrchestrator) RunSync(ctx context.Context, opts domain.SyncOptions) domain.SyncResult {
	o.mu.Lock()
	if existing := o.inflight; existing != nil {
		o.mu.Unlock()
		logger.Info("sync already in flight, joining its result")
		<-existing.done
		return existing.result
	}
	run := &inflightRun{done: make(chan struct{})}
	o.inflight = run
	o.mu.Unlock()

	run.result = o.runLocked(ctx, opts)

	o.mu.Lock()
	o.inflight = nil
	o.mu.Unlock()
	close(run.done)

	return run.result
}

// SyncIfStale starts a background incremental run when the cache is older
// than the staleness threshold. Errors are swallowed into the log.
func (o *SyncOrchestrator) SyncIfStale(staleness time.Duration) {
	go func() {
		ctx := context.Background()
		cp, err := o.checkpoints.Get(ctx)
		if err != nil {
			logger.Warn("background sync: read checkpoint: %v", err)
			return
		}
		if time.Since(cp.LastSuccessAt) <= staleness {
			return
		}
		result := o.RunSync(ctx, domain.SyncOptions{Incremental: true})
		if !result.Success {
			logger.Warn("background sync finished with errors: %s", result.Err)
		}
	}()
}

// runLocked performs the run body. The caller holds the in-flight slot.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) runLocked(ctx context.Context, opts domain.SyncOptions) domain.SyncResult {
	started := time.Now()
	result := domain.SyncResult{RunID: uuid.NewString()}

	if opts.MaxFiles <= 0 {
		opts.MaxFiles = o.cfg.DefaultMaxFiles
	}

	finish := func() domain.SyncResult {
		result.Duration = time.Since(started)
		return result
	}

	cp, err := o.checkpoints.Get(ctx)
	if err != nil {
		result.Err = fmt.Sprintf("read checkpoint: %v", err)
		return finish()
	}

	// A "syncing" status with no in-process run is a leftover from an
	// abruptly stopped process: stale, resumable, not currently running.
	// The reset is persisted right away so status reporting never shows
	// a phantom in-flight run, even when the interval guard below skips
	// the rest of this run.
	if cp.Status == domain.SyncRunning {
		logger.Warn("stale syncing checkpoint found, resetting to idle")
		cp.Status = domain.SyncIdle
		if err := o.checkpoints.Save(ctx, cp); err != nil {
			result.Err = fmt.Sprintf("save checkpoint: %v", err)
			return finish()
		}
	}

	// Rate-budget guard: a very recent successful run makes this a no-op
	// that still reports success.
	if !opts.Force && !cp.LastSuccessAt.IsZero() &&
		time.Since(cp.LastSuccessAt) < o.cfg.MinSyncInterval {
		logger.Info("last sync %s ago, below minimum interval, skipping",
			time.Since(cp.LastSuccessAt).Round(time.Second))
		result.Success = true
		return finish()
	}

	cp.Status = domain.SyncRunning
	if err := o.checkpoints.Save(ctx, cp); err != nil {
		result.Err = fmt.Sprintf("save checkpoint: %v", err)
		return finish()
	}

	logger.Info("sync run %s starting (force=%v incremental=%v maxFiles=%d)",
		result.RunID, opts.Force, opts.Incremental, opts.MaxFiles)

	outcome := o.execute(ctx, opts, cp)
	result.UpdatedCount = outcome.updated
	result.FailedCount = len(outcome.failures)
	result.DeferredCount = outcome.deferred
	result.Success = outcome.hardErr == nil && len(outcome.failures) == 0 && outcome.deferred == 0
	result.Err = outcome.summary()

	// Persist the end-of-run checkpoint. The success timestamp only
	// advances when nothing failed and nothing was deferred, so skipped
	// work is revisited by the next incremental run.
	now := time.Now().UTC()
	if result.Success {
		cp.LastSuccessAt = now
		cp.Status = domain.SyncIdle
		cp.LastError = ""
	} else {
		cp.Status = domain.SyncError
		cp.LastError = result.Err
	}
	if count, err := o.articles.Count(ctx); err == nil {
		cp.RecordCount = count
	}
	cp.LastDurationMs = time.Since(started).Milliseconds()
	if err := o.checkpoints.Save(ctx, cp); err != nil {
		logger.Warn("save checkpoint: %v", err)
	}

	logger.Info("sync run %s done: %d updated, %d failed, %d deferred in %s",
		result.RunID, result.UpdatedCount, result.FailedCount, result.DeferredCount,
		time.Since(started).Round(time.Millisecond))

	return finish()
}

// runOutcome accumulates per-run counters.
type runOutcome struct {
	updated     int
	deferred    int
	failures    []string
	hardErr     error
	rateLimited *domain.RateLimitError
	denied      error
}

// summary renders the failure summary shown to callers.
func (oc *runOutcome) summary() string {
	var parts []string
	if oc.hardErr != nil {
		parts = append(parts, oc.hardErr.Error())
	}
	if oc.rateLimited != nil && oc.hardErr == nil {
		parts = append(parts, oc.rateLimited.Error())
	}
	if oc.denied != nil && oc.hardErr == nil {
		parts = append(parts, oc.denied.Error())
	}
	if len(oc.failures) > 0 {
		const maxListed = 5
		listed := oc.failures
		if len(listed) > maxListed {
			listed = listed[:maxListed]
		}
		parts = append(parts, fmt.Sprintf("%d file(s) failed: %s",
			len(oc.failures), strings.Join(listed, "; ")))
	}
	if oc.deferred > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) deferred by the per-run cap", oc.deferred))
	}
	return strings.Join(parts, "; ")
}

// abortRemote reports whether the run should stop issuing remote calls.
func (oc *runOutcome) abortRemote() bool {
	return oc.rateLimited != nil || oc.denied != nil || oc.hardErr != nil
}

// noteError classifies an error into the outcome. Rate limiting and
// credential rejections abort all remaining remote calls for the run
// instead of burning budget on calls that will also fail.
func (oc *runOutcome) noteError(scope string, err error) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		if oc.rateLimited == nil {
			oc.rateLimited = rle
		}
	}
	if errors.Is(err, domain.ErrUnauthorized) && oc.denied == nil {
		oc.denied = err
	}
	oc.failures = append(oc.failures, fmt.Sprintf("%s: %v", scope, err))
}

// execute runs change detection and processing for every repository.
func (o *SyncOrchestrator) execute(
	ctx context.Context, opts domain.SyncOptions, cp domain.Checkpoint,
) *runOutcome {
	outcome := &runOutcome{}

	refs := map[string]string{}
	pointerTrusted := false

	// Strategy 1: whole-repository pointer check. Only trusted when the
	// head pointer was obtainable for every repository.
	if !opts.Force {
		allUnchanged, checkedRefs, err := o.detector.PointerCheck(ctx, o.repos)
		switch {
		case err == nil:
			refs = checkedRefs
			pointerTrusted = true
			if allUnchanged {
				logger.Info("all repository pointers unchanged, nothing to sync")
				return outcome
			}
		case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrUnauthorized):
			outcome.noteError("pointer check", err)
			outcome.hardErr = err
			return outcome
		default:
			logger.Warn("pointer check unreliable, syncing every repository: %v", err)
		}
	}

	incremental := opts.Incremental && !opts.Force && !cp.LastSuccessAt.IsZero()

	for _, repo := range o.repos {
		if outcome.abortRemote() {
			break
		}

		// Pointer-unchanged repositories need no work this cycle.
		if pointerTrusted {
			if mark, err := o.watermarks.Get(ctx, repo.ID); err == nil &&
				mark.LatestRef == refs[repo.ID] {
				logger.Debug("repo %s unchanged at %s", repo.ID, mark.LatestRef)
				continue
			}
		}

		plan := o.detector.Plan(ctx, repo, cp.LastSuccessAt, incremental)
		if plan.Err != nil {
			outcome.noteError("repo "+repo.ID, plan.Err)
			if outcome.abortRemote() {
				break
			}
			continue
		}
		if plan.LatestRef != "" {
			refs[repo.ID] = plan.LatestRef
		}

		logger.Info("repo %s: %s strategy selected %d candidate(s)",
			repo.ID, plan.Strategy, len(plan.Candidates))

		repoFailed, repoDeferred := o.processRepo(ctx, plan, opts, outcome)

		// Watermark non-advancement: a repository's pointer only moves
		// forward when nothing in it failed or was deferred.
		if repoFailed == 0 && repoDeferred == 0 {
			o.advanceWatermark(ctx, repo, refs[repo.ID], outcome)
		}
	}

	// Nothing processed plus a hard remote failure means the run failed
	// outright rather than partially.
	if outcome.updated == 0 && outcome.hardErr == nil {
		if outcome.rateLimited != nil {
			outcome.hardErr = outcome.rateLimited
		} else if outcome.denied != nil {
			outcome.hardErr = outcome.denied
		}
	}

	return outcome
}

// processRepo fetches, extracts and persists one repository's candidates.
// Returns the repository's failure and deferral counts.
func (o *SyncOrchestrator) processRepo(
	ctx context.Context, plan RepoPlan, opts domain.SyncOptions, outcome *runOutcome,
) (failed, deferred int) {
	candidates := plan.Candidates

	// Work bounding: candidates beyond the per-run cap are deferred,
	// tracked separately from successes and failures.
	if opts.MaxFiles > 0 {
		remaining := opts.MaxFiles - o.processedSoFar(outcome)
		if remaining < 0 {
			remaining = 0
		}
		if len(candidates) > remaining {
			deferred = len(candidates) - remaining
			outcome.deferred += deferred
			candidates = candidates[:remaining]
		}
	}

	before := len(outcome.failures)
	for start := 0; start < len(candidates); start += o.cfg.FetchConcurrency {
		if outcome.abortRemote() {
			// Remaining candidates were never attempted: deferred, not failed.
			remaining := len(candidates) - start
			outcome.deferred += remaining
			deferred += remaining
			break
		}
		end := start + o.cfg.FetchConcurrency
		if end > len(candidates) {
			end = len(candidates)
		}
		o.processBatch(ctx, candidates[start:end], outcome)
	}

	return len(outcome.failures) - before, deferred
}

// processedSoFar counts candidates consumed against the per-run cap.
func (o *SyncOrchestrator) processedSoFar(outcome *runOutcome) int {
	return outcome.updated + len(outcome.failures)
}

// fetchResult carries one candidate's fetch+extract outcome from the
// fan-out stage to the serial persistence stage.
type fetchResult struct {
	candidate Candidate
	article   domain.Article
	err       error
}

// processBatch fans out fetch+extract for one batch and persists results
// serially in candidate order, so writes to the store never interleave.
func (o *SyncOrchestrator) processBatch(ctx context.Context, batch []Candidate, outcome *runOutcome) {
	results := make([]fetchResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchConcurrency)
	for i, cand := range batch {
		g.Go(func() error {
			article, err := o.fetchAndExtract(gctx, cand)
			results[i] = fetchResult{candidate: cand, article: article, err: err}
			return nil // per-file failures are recorded, never abort the batch
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	for _, res := range results {
		key := domain.ArticleKey(res.candidate.Repo.ID, res.candidate.Path)
		if res.err != nil {
			// A commit-derived candidate can name a file deleted after
			// that commit. The local record stays untouched and the
			// deletion must not keep the run from succeeding.
			if res.candidate.SHA == "" && errors.Is(res.err, domain.ErrNotFound) {
				logger.Debug("%s no longer exists remotely, skipping", key)
				continue
			}
			logger.Debug("failed to process %s: %v", key, res.err)
			outcome.noteError(key, res.err)
			continue
		}
		if err := o.articles.Upsert(ctx, res.article); err != nil {
			// Persistence failures are fatal to the run.
			outcome.noteError(key, err)
			outcome.hardErr = fmt.Errorf("persist %s: %w", key, err)
			return
		}
		outcome.updated++
	}
}

// fetchAndExtract downloads one candidate file and builds its article record.
func (o *SyncOrchestrator) fetchAndExtract(ctx context.Context, cand Candidate) (domain.Article, error) {
	var (
		raw []byte
		sha = cand.SHA
		err error
	)
	if sha != "" {
		raw, err = o.source.FetchRaw(ctx, cand.Repo, sha)
	} else {
		raw, sha, err = o.source.FetchFile(ctx, cand.Repo, cand.Path)
	}
	if err != nil {
		return domain.Article{}, err
	}

	extracted := ExtractArticle(raw)
	if extracted.Title == "" {
		extracted.Title = TitleFromFilename(cand.Path)
	}

	if extracted.EffectiveDate == nil && o.cfg.ResolveFirstPublished {
		if first, err := o.source.OldestCommitTime(ctx, cand.Repo, cand.Path); err == nil && !first.IsZero() {
			day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
			extracted.EffectiveDate = &day
		}
	}

	now := time.Now().UTC()
	lastChange := cand.MTime
	if lastChange.IsZero() {
		lastChange = now
	}

	branch := cand.Repo.Branch
	if branch == "" {
		branch = "main"
	}

	return domain.Article{
		Key:           domain.ArticleKey(cand.Repo.ID, cand.Path),
		RepoID:        cand.Repo.ID,
		Path:          cand.Path,
		Title:         extracted.Title,
		Summary:       extracted.Summary,
		Category:      cand.Repo.Category,
		EffectiveDate: extracted.EffectiveDate,
		ChangeToken:   sha,
		LastChangeAt:  lastChange,
		FirstSeenAt:   now,
		SourceURL: fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s",
			cand.Repo.FullName(), branch, cand.Path),
		CanonicalURL: fmt.Sprintf("https://github.com/%s/blob/%s/%s",
			cand.Repo.FullName(), branch, cand.Path),
		UpdatedAt: now,
	}, nil
}

// advanceWatermark moves a repository's head pointer forward after an
// error-free, non-deferred pass.
func (o *SyncOrchestrator) advanceWatermark(
	ctx context.Context, repo domain.TrackedRepo, ref string, outcome *runOutcome,
) {
	if ref == "" {
		latest, err := o.source.LatestRef(ctx, repo)
		if err != nil {
			logger.Warn("watermark for %s not advanced: %v", repo.ID, err)
			var rle *domain.RateLimitError
			if errors.As(err, &rle) && outcome.rateLimited == nil {
				outcome.rateLimited = rle
			}
			return
		}
		ref = latest
	}
	mark := domain.Watermark{RepoID: repo.ID, LatestRef: ref, UpdatedAt: time.Now().UTC()}
	if err := o.watermarks.Save(ctx, mark); err != nil {
		logger.Warn("save watermark %s: %v", repo.ID, err)
	}
}
