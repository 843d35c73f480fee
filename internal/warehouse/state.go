package warehouse

import (
	"context"
	"database/sql"

	"gitsink/pkg/errors"
)

// LastIngestedRevision returns the revision of the newest ingested commit
// for the branch, or "" when no commits have landed yet. Ingestion order
// comes from the per-row ingested_at stamps, so a partially completed run
// resumes from what actually reached the warehouse, not from the recorded
// branch head.
func (s *Service) LastIngestedRevision(ctx context.Context, repoID, branch string) (string, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	query := `SELECT revision_id FROM commits
		WHERE repo_id = ? AND branch_name = ?
		ORDER BY ingested_at DESC
		LIMIT 1`

	var revision string
	err := s.db.QueryRowContext(opCtx, query, repoID, branch).Scan(&revision)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeWarehouseRead, "Failed to read last ingested revision").
			WithContext("repo_id", repoID).
			WithContext("branch", branch)
	}
	return revision, nil
}

// BranchHead returns the recorded head revision for the branch, or ""
// when the branch is unknown or has no head yet.
func (s *Service) BranchHead(ctx context.Context, repoID, branch string) (string, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	query := `SELECT head_revision FROM branches
		WHERE repo_id = ? AND branch_name = ?`

	var head sql.NullString
	err := s.db.QueryRowContext(opCtx, query, repoID, branch).Scan(&head)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeWarehouseRead, "Failed to read branch head").
			WithContext("repo_id", repoID).
			WithContext("branch", branch)
	}
	if !head.Valid {
		return "", nil
	}
	return head.String, nil
}
