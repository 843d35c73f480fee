package models

import "time"

// ChangeKind classifies how a commit touched a file
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "Added"
	ChangeModified ChangeKind = "Modified"
	ChangeDeleted  ChangeKind = "Deleted"
	ChangeRenamed  ChangeKind = "Renamed"
)

// BranchRef identifies a branch in the repository
type BranchRef struct {
	Name      string `json:"name"`
	IsRemote  bool   `json:"is_remote"`
	IsDefault bool   `json:"is_default"`
}

// CommitRecord is a raw commit as read from the repository, before
// repo/branch attribution
type CommitRecord struct {
	Revision    string    `json:"revision"`
	Parent      string    `json:"parent,omitempty"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CommittedAt time.Time `json:"committed_at"`
	Message     string    `json:"message"`
}

// FileChangeRecord is a raw per-file diff entry for a single commit
type FileChangeRecord struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	OldPath   string     `json:"old_path,omitempty"`
	Diff      string     `json:"diff"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// CurrentFileRecord is a file in the working tree at a branch tip
type CurrentFileRecord struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	SizeBytes    int64  `json:"size_bytes"`
	LastRevision string `json:"last_revision"`
}

// CommitRow is a commits table row, keyed per branch context:
// (repo_id, branch_name, revision_id) appears at most once
type CommitRow struct {
	RepoID      string    `json:"repo_id"`
	BranchName  string    `json:"branch_name"`
	Revision    string    `json:"revision_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CommittedAt time.Time `json:"committed_at"`
	Message     string    `json:"message"`
	Parent      string    `json:"parent_revision_id,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// FileChangeRow is a file_changes table row, append-only
type FileChangeRow struct {
	RepoID     string     `json:"repo_id"`
	Revision   string     `json:"commit_revision_id"`
	Path       string     `json:"file_path"`
	Kind       ChangeKind `json:"change_kind"`
	OldPath    string     `json:"old_path,omitempty"`
	Diff       string     `json:"diff_text"`
	Additions  int        `json:"additions_count"`
	Deletions  int        `json:"deletions_count"`
	IngestedAt time.Time  `json:"ingested_at"`
}

// CurrentFileRow is a current_files table row: exactly one per
// (repo_id, branch_name, file_path) at any time
type CurrentFileRow struct {
	RepoID       string    `json:"repo_id"`
	BranchName   string    `json:"branch_name"`
	Path         string    `json:"file_path"`
	Content      string    `json:"content"`
	SizeBytes    int64     `json:"size_bytes"`
	LastRevision string    `json:"last_revision_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
