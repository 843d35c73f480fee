package gitrepo

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

const remotePrefix = "origin/"

// Reader provides read-only access to a repository checkout: branch
// listing, revision resolution, incremental history, per-commit diffs and
// the working tree at a branch tip.
type Reader struct {
	path string
	repo *git.Repository
}

// Open opens the repository containing path. The .git directory is
// detected upward from path, so running from a subdirectory works.
func Open(path string) (*Reader, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.RepositoryAccessError(path, err)
	}

	return &Reader{path: path, repo: repo}, nil
}

// ListBranches enumerates local branch names, or remote-tracking names
// with the origin/ prefix stripped when includeRemote is set.
func (r *Reader) ListBranches(includeRemote bool) ([]models.BranchRef, error) {
	var branches []models.BranchRef

	if !includeRemote {
		iter, err := r.repo.Branches()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to list branches")
		}
		err = iter.ForEach(func(ref *plumbing.Reference) error {
			branches = append(branches, models.BranchRef{Name: ref.Name().Short()})
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to iterate branches")
		}
		return branches, nil
	}

	refs, err := r.repo.References()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to list references")
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() {
			return nil
		}
		name := ref.Name().Short()
		// Skip the origin/HEAD pointer
		if strings.HasSuffix(name, "/HEAD") {
			return nil
		}
		name = strings.TrimPrefix(name, remotePrefix)
		branches = append(branches, models.BranchRef{Name: name, IsRemote: true})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to iterate references")
	}

	return branches, nil
}

// CurrentBranch returns the checked-out branch name, or "" in detached
// HEAD state.
func (r *Reader) CurrentBranch() string {
	head, err := r.repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return ""
}

// DefaultBranch probes for main then master, locally first and then in
// remote-tracking branches, defaulting to main when neither exists.
func (r *Reader) DefaultBranch() string {
	for _, includeRemote := range []bool{false, true} {
		branches, err := r.ListBranches(includeRemote)
		if err != nil {
			continue
		}
		names := make(map[string]bool, len(branches))
		for _, b := range branches {
			names[b.Name] = true
		}
		if names["main"] {
			return "main"
		}
		if names["master"] {
			return "master"
		}
	}
	return "main"
}

// ResolveHead returns the tip revision of a named branch, trying the
// local branch reference first and the origin remote-tracking reference
// second.
func (r *Reader) ResolveHead(branch string) (string, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return ref.Hash().String(), nil
	}

	ref, err = r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err == nil {
		return ref.Hash().String(), nil
	}

	return "", errors.New(errors.ErrCodeBranchNotFound,
		"Branch not found").WithContext("branch", branch)
}

// CommitsSince returns the first-parent chain of commits reachable from
// the branch tip and not from lastRevision, oldest first so parents are
// always ingested before children. Empty lastRevision means the full
// history. A lastRevision that is not on the tip's first-parent chain
// means history was rewritten and is surfaced as a divergence error.
func (r *Reader) CommitsSince(lastRevision, branch string) ([]models.CommitRecord, error) {
	tip, err := r.ResolveHead(branch)
	if err != nil {
		return nil, err
	}

	commit, err := r.repo.CommitObject(plumbing.NewHash(tip))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load branch tip").
			WithContext("branch", branch).
			WithContext("revision", tip)
	}

	var records []models.CommitRecord
	found := lastRevision == ""

	for c := commit; c != nil; {
		if lastRevision != "" && c.Hash.String() == lastRevision {
			found = true
			break
		}

		records = append(records, commitRecord(c))

		if c.NumParents() == 0 {
			break
		}
		parent, err := c.Parent(0)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load parent commit").
				WithContext("revision", c.Hash.String())
		}
		c = parent
	}

	if !found {
		return nil, errors.HistoryDivergedError(branch, lastRevision)
	}

	// The walk collects newest-first; ingestion wants oldest-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// FileChanges computes per-file change records between a commit and its
// first parent, with rename detection. A commit with no parent diffs
// against the empty tree, so every file is reported as Added. Files whose
// content classifies binary are not reported.
func (r *Reader) FileChanges(ctx context.Context, revision, parentRevision string) ([]models.FileChangeRecord, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(revision))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load commit").
			WithContext("revision", revision)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load commit tree").
			WithContext("revision", revision)
	}

	var parentTree *object.Tree
	if parentRevision != "" {
		parent, err := r.repo.CommitObject(plumbing.NewHash(parentRevision))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load parent commit").
				WithContext("revision", parentRevision)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load parent tree").
				WithContext("revision", parentRevision)
		}
	}

	opts := &object.DiffTreeOptions{DetectRenames: true}
	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to diff trees").
			WithContext("revision", revision)
	}

	var records []models.FileChangeRecord
	for _, change := range changes {
		record, ok, err := r.changeRecord(change)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, record)
		}
	}

	return records, nil
}

// changeRecord maps one tree change to a FileChangeRecord. The second
// return value is false for changes excluded by the binary policy.
func (r *Reader) changeRecord(change *object.Change) (models.FileChangeRecord, bool, error) {
	var record models.FileChangeRecord

	from, to, err := change.Files()
	if err != nil {
		return record, false, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load change blobs")
	}

	// Binary content never produces a file_changes row, matching the
	// numstat behavior of skipping "-" entries.
	for _, f := range []*object.File{from, to} {
		if f == nil {
			continue
		}
		binary, err := blobIsBinary(f)
		if err != nil {
			return record, false, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to read blob").
				WithContext("path", f.Name)
		}
		if binary {
			return record, false, nil
		}
	}

	switch {
	case from == nil && to == nil:
		return record, false, nil
	case from == nil:
		record.Kind = models.ChangeAdded
		record.Path = change.To.Name
	case to == nil:
		record.Kind = models.ChangeDeleted
		record.Path = change.From.Name
	case change.From.Name != change.To.Name:
		record.Kind = models.ChangeRenamed
		record.Path = change.To.Name
		record.OldPath = change.From.Name
	default:
		record.Kind = models.ChangeModified
		record.Path = change.To.Name
	}

	patch, err := change.Patch()
	if err != nil {
		return record, false, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to compute patch").
			WithContext("path", record.Path)
	}
	record.Diff = patch.String()

	for _, stat := range patch.Stats() {
		record.Additions += stat.Addition
		record.Deletions += stat.Deletion
	}

	return record, true, nil
}

// CurrentFiles walks the tracked tree at the branch tip. Binary content
// and files over maxFileSize are skipped entirely, never truncated; the
// skip counts are reported through the normalizer, which re-applies the
// same policy as the authoritative enforcement point.
func (r *Reader) CurrentFiles(branch string, maxFileSize int64) ([]models.CurrentFileRecord, error) {
	tip, err := r.ResolveHead(branch)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(plumbing.NewHash(tip))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load branch tip").
			WithContext("branch", branch)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load tip tree").
			WithContext("branch", branch)
	}

	var files []models.CurrentFileRecord
	paths := make(map[string]struct{})

	err = tree.Files().ForEach(func(f *object.File) error {
		if f.Blob.Size > maxFileSize {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return err
		}
		if IsBinary([]byte(content)) {
			return nil
		}
		files = append(files, models.CurrentFileRecord{
			Path:      f.Name,
			Content:   content,
			SizeBytes: f.Blob.Size,
		})
		paths[f.Name] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to walk tip tree").
			WithContext("branch", branch)
	}

	touched, err := r.lastTouching(commit, paths)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].LastRevision = touched[files[i].Path]
	}

	return files, nil
}

// lastTouching attributes each path to the newest commit on the tip's
// first-parent chain that changed it, in a single history walk instead of
// one log invocation per file.
func (r *Reader) lastTouching(tip *object.Commit, paths map[string]struct{}) (map[string]string, error) {
	remaining := make(map[string]struct{}, len(paths))
	for p := range paths {
		remaining[p] = struct{}{}
	}
	touched := make(map[string]string, len(paths))

	for c := tip; c != nil && len(remaining) > 0; {
		tree, err := c.Tree()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load tree").
				WithContext("revision", c.Hash.String())
		}

		var parent *object.Commit
		var parentTree *object.Tree
		if c.NumParents() > 0 {
			parent, err = c.Parent(0)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeCommitNotFound, "Failed to load parent commit").
					WithContext("revision", c.Hash.String())
			}
			parentTree, err = parent.Tree()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to load parent tree").
					WithContext("revision", parent.Hash.String())
			}
		}

		changes, err := object.DiffTree(parentTree, tree)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRepoAccess, "Failed to diff trees").
				WithContext("revision", c.Hash.String())
		}

		for _, change := range changes {
			name := change.To.Name
			if name == "" {
				continue
			}
			if _, want := remaining[name]; want {
				touched[name] = c.Hash.String()
				delete(remaining, name)
			}
		}

		c = parent
	}

	return touched, nil
}

func commitRecord(c *object.Commit) models.CommitRecord {
	record := models.CommitRecord{
		Revision:    c.Hash.String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		CommittedAt: c.Author.When,
		Message:     strings.TrimSpace(c.Message),
	}
	if c.NumParents() > 0 {
		record.Parent = c.ParentHashes[0].String()
	}
	return record
}
