package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitsink/internal/normalize"
	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

// RepositorySource is the read side of a sync: everything the
// orchestrator needs from a local git checkout.
type RepositorySource interface {
	RepoID() string
	RepoName() string
	RepoURL() string
	CurrentBranch() string
	DefaultBranch() string
	ListBranches(includeRemote bool) ([]models.BranchRef, error)
	ResolveHead(branch string) (string, error)
	CommitsSince(lastRevision, branch string) ([]models.CommitRecord, error)
	FileChanges(ctx context.Context, revision, parentRevision string) ([]models.FileChangeRecord, error)
	CurrentFiles(branch string, maxFileSize int64) ([]models.CurrentFileRecord, error)
}

// Warehouse is the write side plus the sync-state reads backing
// incremental resumption.
type Warehouse interface {
	EnsureSchema(ctx context.Context) error
	UpsertRepository(ctx context.Context, repoID, name, url string) error
	UpsertBranch(ctx context.Context, repoID, branch string, isDefault bool) error
	SetBranchHead(ctx context.Context, repoID, branch, revision string) error
	InsertCommits(ctx context.Context, rows []models.CommitRow) error
	InsertFileChanges(ctx context.Context, rows []models.FileChangeRow) error
	ReconcileCurrentFiles(ctx context.Context, repoID, branch string, rows []models.CurrentFileRow) error
	LastIngestedRevision(ctx context.Context, repoID, branch string) (string, error)
}

// Orchestrator drives the per-branch sync sequence against a repository
// source and a warehouse sink.
type Orchestrator struct {
	source RepositorySource
	sink   Warehouse
	logger *zap.Logger
	config models.Sync
}

func NewOrchestrator(source RepositorySource, sink Warehouse, logger *zap.Logger, config models.Sync) *Orchestrator {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = models.DefaultMaxFileSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = models.DefaultConcurrency
	}
	if config.CommitBatchSize <= 0 {
		config.CommitBatchSize = models.DefaultCommitBatchSize
	}
	return &Orchestrator{
		source: source,
		sink:   sink,
		logger: logger,
		config: config,
	}
}

// Run syncs the configured branches and reports per-branch outcomes.
// A branch failure is recorded and the remaining branches still run;
// only fatal errors (bad repository, contract violations) abort the
// whole invocation.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	repoID := o.config.RepoID
	if repoID == "" {
		repoID = o.source.RepoID()
	}
	if repoID == "" {
		return nil, errors.ConfigError(
			"Repository id is not set and cannot be derived from the origin remote",
			"sync.repo_id",
		)
	}

	if err := o.sink.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := o.sink.UpsertRepository(ctx, repoID, o.source.RepoName(), o.source.RepoURL()); err != nil {
		return nil, err
	}

	branches, err := o.targetBranches()
	if err != nil {
		return nil, err
	}

	defaultBranch := o.source.DefaultBranch()
	results := make([]BranchResult, len(branches))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.config.Concurrency)

	for i, branch := range branches {
		i, branch := i, branch
		group.Go(func() error {
			result := o.syncBranch(groupCtx, repoID, branch, branch == defaultBranch)
			results[i] = result

			if result.Err != nil && errors.IsFatal(result.Err) {
				return result.Err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return &Summary{RepoID: repoID, Branches: results, Duration: time.Since(started)}, err
	}

	return &Summary{RepoID: repoID, Branches: results, Duration: time.Since(started)}, nil
}

func (o *Orchestrator) targetBranches() ([]string, error) {
	if o.config.AllBranches {
		refs, err := o.source.ListBranches(o.config.IncludeRemote)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(refs))
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			if _, ok := seen[ref.Name]; ok {
				continue
			}
			seen[ref.Name] = struct{}{}
			names = append(names, ref.Name)
		}
		return names, nil
	}

	branch := o.config.Branch
	if branch == "" {
		branch = o.source.CurrentBranch()
	}
	if branch == "" {
		branch = o.source.DefaultBranch()
	}
	return []string{branch}, nil
}

// syncBranch runs the full per-branch sequence. The branch head is
// recorded only after every commit batch and the current-file snapshot
// have landed, so an interruption at any point leaves the warehouse an
// exact prefix of the branch history.
func (o *Orchestrator) syncBranch(ctx context.Context, repoID, branch string, isDefault bool) BranchResult {
	started := time.Now()
	result := BranchResult{Branch: branch, Stage: StageResolving}
	log := o.logger.With(
		zap.String("repo_id", repoID),
		zap.String("branch", branch),
	)

	fail := func(err error) BranchResult {
		result.Err = err
		result.Duration = time.Since(started)
		log.Error("branch sync failed",
			zap.String("stage", string(result.Stage)),
			zap.Error(err),
		)
		return result
	}

	// one normalizer per branch: stamps are ordered within the branch,
	// which is the granularity resumption reads them at
	norm := normalize.New()

	if err := o.sink.UpsertBranch(ctx, repoID, branch, isDefault); err != nil {
		return fail(err)
	}

	tip, err := o.source.ResolveHead(branch)
	if err != nil {
		return fail(err)
	}
	result.HeadRevision = tip

	last, err := o.sink.LastIngestedRevision(ctx, repoID, branch)
	if err != nil {
		return fail(err)
	}

	result.Stage = StageFetchingCommits
	commits, err := o.source.CommitsSince(last, branch)
	if err != nil {
		return fail(err)
	}

	result.Stage = StageIngestingCommits
	for start := 0; start < len(commits); start += o.config.CommitBatchSize {
		end := start + o.config.CommitBatchSize
		if end > len(commits) {
			end = len(commits)
		}
		changed, err := o.ingestBatch(ctx, norm, repoID, branch, commits[start:end])
		if err != nil {
			return fail(err)
		}
		result.Commits += end - start
		result.FileChanges += changed
	}

	result.Stage = StageReconcilingFiles
	files, err := o.source.CurrentFiles(branch, o.config.MaxFileSize)
	if err != nil {
		return fail(err)
	}
	rows, excluded := norm.CurrentFileRows(repoID, branch, files, o.config.MaxFileSize)
	if err := o.sink.ReconcileCurrentFiles(ctx, repoID, branch, rows); err != nil {
		return fail(err)
	}
	result.CurrentFiles = len(rows)
	result.ExcludedBinary = excluded.Binary
	result.ExcludedOversize = excluded.Oversize

	result.Stage = StageUpdatingHead
	if err := o.sink.SetBranchHead(ctx, repoID, branch, tip); err != nil {
		return fail(err)
	}

	result.Stage = StageDone
	result.Duration = time.Since(started)
	log.Info("branch synced",
		zap.String("head", tip),
		zap.Int("commits", result.Commits),
		zap.Int("file_changes", result.FileChanges),
		zap.Int("current_files", result.CurrentFiles),
		zap.Int("excluded_binary", result.ExcludedBinary),
		zap.Int("excluded_oversize", result.ExcludedOversize),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// ingestBatch writes one history-ordered slice of commits. File-change
// rows land before their commit rows: the resume point is read from the
// commits table, so a commit must never appear there until its diffs are
// durable. An interruption between the two inserts re-offers the whole
// batch on the next run, which can duplicate file_changes rows but never
// lose them.
func (o *Orchestrator) ingestBatch(ctx context.Context, norm *normalize.Normalizer, repoID, branch string, commits []models.CommitRecord) (int, error) {
	var changeRows []models.FileChangeRow
	for _, commit := range commits {
		changes, err := o.source.FileChanges(ctx, commit.Revision, commit.Parent)
		if err != nil {
			return 0, err
		}
		rows, err := norm.FileChangeRows(repoID, commit.Revision, changes)
		if err != nil {
			return 0, err
		}
		changeRows = append(changeRows, rows...)
	}
	if err := o.sink.InsertFileChanges(ctx, changeRows); err != nil {
		return 0, err
	}

	commitRows := norm.CommitRows(repoID, branch, commits)
	if err := o.sink.InsertCommits(ctx, commitRows); err != nil {
		return 0, err
	}
	return len(changeRows), nil
}
