package warehouse

import (
	"context"

	"gitsink/pkg/errors"
)

var schemaStatements = []struct {
	table string
	ddl   string
}{
	{"repositories", `CREATE TABLE IF NOT EXISTS repositories (
		repo_id STRING NOT NULL,
		name STRING,
		url STRING,
		created_at TIMESTAMP_TZ,
		PRIMARY KEY (repo_id)
	)`},
	{"branches", `CREATE TABLE IF NOT EXISTS branches (
		repo_id STRING NOT NULL,
		branch_name STRING NOT NULL,
		head_revision STRING,
		is_default BOOLEAN,
		created_at TIMESTAMP_TZ,
		updated_at TIMESTAMP_TZ,
		PRIMARY KEY (repo_id, branch_name)
	)`},
	{"commits", `CREATE TABLE IF NOT EXISTS commits (
		repo_id STRING NOT NULL,
		branch_name STRING NOT NULL,
		revision_id STRING NOT NULL,
		author_name STRING,
		author_email STRING,
		committed_at TIMESTAMP_TZ,
		message STRING,
		parent_revision_id STRING,
		ingested_at TIMESTAMP_TZ,
		PRIMARY KEY (repo_id, branch_name, revision_id)
	)`},
	{"file_changes", `CREATE TABLE IF NOT EXISTS file_changes (
		repo_id STRING NOT NULL,
		commit_revision_id STRING NOT NULL,
		file_path STRING NOT NULL,
		change_kind STRING NOT NULL,
		old_path STRING,
		diff_text STRING,
		additions_count NUMBER,
		deletions_count NUMBER,
		ingested_at TIMESTAMP_TZ
	)`},
	{"current_files", `CREATE TABLE IF NOT EXISTS current_files (
		repo_id STRING NOT NULL,
		branch_name STRING NOT NULL,
		file_path STRING NOT NULL,
		content STRING,
		size_bytes NUMBER,
		last_revision_id STRING,
		updated_at TIMESTAMP_TZ,
		PRIMARY KEY (repo_id, branch_name, file_path)
	)`},
}

// EnsureSchema creates every warehouse table that does not already exist.
// IF NOT EXISTS makes it safe to run on every invocation and safe when
// several invocations race.
func (s *Service) EnsureSchema(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(opCtx, stmt.ddl); err != nil {
			return errors.Wrap(err, errors.ErrCodeSchemaCreate, "Failed to create table").
				WithContext("table", stmt.table)
		}
	}
	return nil
}
