package warehouse

import (
	"context"
	"fmt"
	"strings"

	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

const insertBatchSize = 500

// UpsertRepository records the repository if it is not already known.
// An existing row is left untouched so created_at survives re-syncs.
func (s *Service) UpsertRepository(ctx context.Context, repoID, name, url string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		query := `MERGE INTO repositories t
			USING (SELECT ? AS repo_id, ? AS name, ? AS url) s
			ON t.repo_id = s.repo_id
			WHEN NOT MATCHED THEN INSERT (repo_id, name, url, created_at)
			VALUES (s.repo_id, s.name, s.url, CURRENT_TIMESTAMP())`

		if _, err := s.db.ExecContext(opCtx, query, repoID, name, url); err != nil {
			return errors.WarehouseWriteError("Failed to upsert repository", err).
				WithContext("repo_id", repoID)
		}
		return nil
	})
}

// UpsertBranch records the branch, refreshing is_default and updated_at
// when the row already exists. head_revision is never touched here; only
// SetBranchHead advances it.
func (s *Service) UpsertBranch(ctx context.Context, repoID, branch string, isDefault bool) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		query := `MERGE INTO branches t
			USING (SELECT ? AS repo_id, ? AS branch_name, ? AS is_default) s
			ON t.repo_id = s.repo_id AND t.branch_name = s.branch_name
			WHEN MATCHED THEN UPDATE SET
				is_default = s.is_default,
				updated_at = CURRENT_TIMESTAMP()
			WHEN NOT MATCHED THEN INSERT (repo_id, branch_name, head_revision, is_default, created_at, updated_at)
			VALUES (s.repo_id, s.branch_name, NULL, s.is_default, CURRENT_TIMESTAMP(), CURRENT_TIMESTAMP())`

		if _, err := s.db.ExecContext(opCtx, query, repoID, branch, isDefault); err != nil {
			return errors.WarehouseWriteError("Failed to upsert branch", err).
				WithContext("repo_id", repoID).
				WithContext("branch", branch)
		}
		return nil
	})
}

// SetBranchHead advances the recorded head revision for a branch. Called
// only after the commit and file rows for that revision have landed.
func (s *Service) SetBranchHead(ctx context.Context, repoID, branch, revision string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		query := `UPDATE branches
			SET head_revision = ?, updated_at = CURRENT_TIMESTAMP()
			WHERE repo_id = ? AND branch_name = ?`

		if _, err := s.db.ExecContext(opCtx, query, revision, repoID, branch); err != nil {
			return errors.WarehouseWriteError("Failed to update branch head", err).
				WithContext("repo_id", repoID).
				WithContext("branch", branch).
				WithContext("revision", revision)
		}
		return nil
	})
}

// InsertCommits appends commit rows in oldest-first order, chunked so a
// single statement never carries more than insertBatchSize rows. Empty
// input is a no-op.
func (s *Service) InsertCommits(ctx context.Context, rows []models.CommitRow) error {
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertCommitBatch(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) insertCommitBatch(ctx context.Context, rows []models.CommitRow) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		placeholders := make([]string, 0, len(rows))
		args := make([]interface{}, 0, len(rows)*9)
		for _, row := range rows {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				row.RepoID, row.BranchName, row.Revision,
				row.AuthorName, row.AuthorEmail, row.CommittedAt,
				row.Message, nullable(row.Parent), row.IngestedAt,
			)
		}

		query := fmt.Sprintf(`INSERT INTO commits
			(repo_id, branch_name, revision_id, author_name, author_email, committed_at, message, parent_revision_id, ingested_at)
			VALUES %s`, strings.Join(placeholders, ", "))

		if _, err := s.db.ExecContext(opCtx, query, args...); err != nil {
			return errors.WarehouseWriteError("Failed to insert commits", err).
				WithContext("rows", len(rows))
		}
		return nil
	})
}

// InsertFileChanges appends file change rows, chunked like InsertCommits.
func (s *Service) InsertFileChanges(ctx context.Context, rows []models.FileChangeRow) error {
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertFileChangeBatch(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) insertFileChangeBatch(ctx context.Context, rows []models.FileChangeRow) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		placeholders := make([]string, 0, len(rows))
		args := make([]interface{}, 0, len(rows)*9)
		for _, row := range rows {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				row.RepoID, row.Revision, row.Path,
				string(row.Kind), nullable(row.OldPath), row.Diff,
				row.Additions, row.Deletions, row.IngestedAt,
			)
		}

		query := fmt.Sprintf(`INSERT INTO file_changes
			(repo_id, commit_revision_id, file_path, change_kind, old_path, diff_text, additions_count, deletions_count, ingested_at)
			VALUES %s`, strings.Join(placeholders, ", "))

		if _, err := s.db.ExecContext(opCtx, query, args...); err != nil {
			return errors.WarehouseWriteError("Failed to insert file changes", err).
				WithContext("rows", len(rows))
		}
		return nil
	})
}

// ReconcileCurrentFiles replaces the current_files rows for one branch
// with the given snapshot in a single transaction: the snapshot is staged
// into a session temp table, rows absent from the stage are deleted, and
// staged rows are merged in. Readers never observe a half-applied
// snapshot. An empty snapshot empties the branch.
func (s *Service) ReconcileCurrentFiles(ctx context.Context, repoID, branch string, rows []models.CurrentFileRow) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		opCtx, cancel := s.opContext(ctx)
		defer cancel()

		tx, err := s.db.BeginTx(opCtx, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to begin reconcile transaction").
				WithContext("branch", branch)
		}
		defer tx.Rollback()

		stmts := []string{
			`DROP TABLE IF EXISTS current_files_stage`,
			`CREATE TEMPORARY TABLE current_files_stage LIKE current_files`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(opCtx, stmt); err != nil {
				return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to stage current files").
					WithContext("branch", branch)
			}
		}

		for start := 0; start < len(rows); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := stageCurrentFiles(opCtx, tx, rows[start:end]); err != nil {
				return err
			}
		}

		deleteQuery := `DELETE FROM current_files
			WHERE repo_id = ? AND branch_name = ?
			AND file_path NOT IN (SELECT file_path FROM current_files_stage)`
		if _, err := tx.ExecContext(opCtx, deleteQuery, repoID, branch); err != nil {
			return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to delete stale current files").
				WithContext("branch", branch)
		}

		mergeQuery := `MERGE INTO current_files t
			USING current_files_stage s
			ON t.repo_id = s.repo_id AND t.branch_name = s.branch_name AND t.file_path = s.file_path
			WHEN MATCHED THEN UPDATE SET
				content = s.content,
				size_bytes = s.size_bytes,
				last_revision_id = s.last_revision_id,
				updated_at = s.updated_at
			WHEN NOT MATCHED THEN INSERT (repo_id, branch_name, file_path, content, size_bytes, last_revision_id, updated_at)
			VALUES (s.repo_id, s.branch_name, s.file_path, s.content, s.size_bytes, s.last_revision_id, s.updated_at)`
		if _, err := tx.ExecContext(opCtx, mergeQuery); err != nil {
			return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to merge current files").
				WithContext("branch", branch)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to commit reconcile transaction").
				WithContext("branch", branch)
		}
		return nil
	})
}

func stageCurrentFiles(ctx context.Context, tx execer, rows []models.CurrentFileRow) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*7)
	for _, row := range rows {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			row.RepoID, row.BranchName, row.Path,
			row.Content, row.SizeBytes, nullable(row.LastRevision), row.UpdatedAt,
		)
	}

	query := fmt.Sprintf(`INSERT INTO current_files_stage
		(repo_id, branch_name, file_path, content, size_bytes, last_revision_id, updated_at)
		VALUES %s`, strings.Join(placeholders, ", "))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeReconcile, "Failed to stage current file rows").
			WithContext("rows", len(rows))
	}
	return nil
}
