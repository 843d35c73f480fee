package normalize

import (
	"fmt"
	"time"

	"gitsink/internal/gitrepo"
	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

// Exclusions counts current-file entries dropped by the filter policy,
// reported per branch for observability.
type Exclusions struct {
	Binary   int
	Oversize int
}

// Normalizer maps raw repository records to warehouse rows: it stamps
// ingestion timestamps, attaches repo and branch attribution, enforces
// the binary/size filter and validates the rename contract. Pure mapping,
// no I/O.
type Normalizer struct {
	now  func() time.Time
	last time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock is used by tests that need deterministic timestamps.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// stamp returns a strictly increasing ingestion timestamp so that
// ingestion order stays total even within one batch.
func (n *Normalizer) stamp() time.Time {
	t := n.now()
	if !t.After(n.last) {
		t = n.last.Add(time.Microsecond)
	}
	n.last = t
	return t
}

// CommitRows attributes commit records to a repo and branch context,
// preserving input order so parents always precede children.
func (n *Normalizer) CommitRows(repoID, branch string, commits []models.CommitRecord) []models.CommitRow {
	rows := make([]models.CommitRow, 0, len(commits))
	for _, c := range commits {
		rows = append(rows, models.CommitRow{
			RepoID:      repoID,
			BranchName:  branch,
			Revision:    c.Revision,
			AuthorName:  c.AuthorName,
			AuthorEmail: c.AuthorEmail,
			CommittedAt: c.CommittedAt,
			Message:     c.Message,
			Parent:      c.Parent,
			IngestedAt:  n.stamp(),
		})
	}
	return rows
}

// FileChangeRows attributes file change records to a repo and commit.
// A Renamed record without an old path, or any other kind carrying one,
// is a bug in the reader and aborts the invocation.
func (n *Normalizer) FileChangeRows(repoID, revision string, changes []models.FileChangeRecord) ([]models.FileChangeRow, error) {
	rows := make([]models.FileChangeRow, 0, len(changes))
	for _, c := range changes {
		if err := validateRename(c); err != nil {
			return nil, err
		}
		rows = append(rows, models.FileChangeRow{
			RepoID:     repoID,
			Revision:   revision,
			Path:       c.Path,
			Kind:       c.Kind,
			OldPath:    c.OldPath,
			Diff:       c.Diff,
			Additions:  c.Additions,
			Deletions:  c.Deletions,
			IngestedAt: n.stamp(),
		})
	}
	return rows, nil
}

// CurrentFileRows filters the working-tree listing and attributes it to a
// repo and branch. The reader usually pre-filters, but this is the single
// authoritative enforcement point so the policy is testable on its own.
func (n *Normalizer) CurrentFileRows(repoID, branch string, files []models.CurrentFileRecord, maxFileSize int64) ([]models.CurrentFileRow, Exclusions) {
	var excluded Exclusions
	rows := make([]models.CurrentFileRow, 0, len(files))

	for _, f := range files {
		if f.SizeBytes > maxFileSize {
			excluded.Oversize++
			continue
		}
		if gitrepo.IsBinary([]byte(f.Content)) {
			excluded.Binary++
			continue
		}
		rows = append(rows, models.CurrentFileRow{
			RepoID:       repoID,
			BranchName:   branch,
			Path:         f.Path,
			Content:      f.Content,
			SizeBytes:    f.SizeBytes,
			LastRevision: f.LastRevision,
			UpdatedAt:    n.stamp(),
		})
	}

	return rows, excluded
}

func validateRename(c models.FileChangeRecord) error {
	switch c.Kind {
	case models.ChangeRenamed:
		if c.OldPath == "" {
			return errors.ContractViolation(
				fmt.Sprintf("Renamed change for %s carries no old path", c.Path))
		}
	case models.ChangeAdded, models.ChangeModified, models.ChangeDeleted:
		if c.OldPath != "" {
			return errors.ContractViolation(
				fmt.Sprintf("%s change for %s carries an old path", c.Kind, c.Path))
		}
	default:
		return errors.ContractViolation(
			fmt.Sprintf("Unknown change kind %q for %s", c.Kind, c.Path))
	}
	return nil
}
