package sync

import (
	"time"
)

// Stage names the step of the per-branch sequence a sync reached. A
// failed branch reports the stage it was in when it stopped.
type Stage string

const (
	StageResolving        Stage = "resolving"
	StageFetchingCommits  Stage = "fetching_commits"
	StageIngestingCommits Stage = "ingesting_commits"
	StageReconcilingFiles Stage = "reconciling_files"
	StageUpdatingHead     Stage = "updating_head"
	StageDone             Stage = "done"
)

// BranchResult is the outcome of syncing one branch.
type BranchResult struct {
	Branch           string
	Stage            Stage
	HeadRevision     string
	Commits          int
	FileChanges      int
	CurrentFiles     int
	ExcludedBinary   int
	ExcludedOversize int
	Duration         time.Duration
	Err              error
}

func (r BranchResult) Succeeded() bool {
	return r.Err == nil
}

// Summary aggregates an invocation's branch results.
type Summary struct {
	RepoID   string
	Branches []BranchResult
	Duration time.Duration
}

func (s *Summary) Synced() int {
	n := 0
	for _, b := range s.Branches {
		if b.Succeeded() {
			n++
		}
	}
	return n
}

func (s *Summary) Failed() int {
	return len(s.Branches) - s.Synced()
}

func (s *Summary) TotalCommits() int {
	n := 0
	for _, b := range s.Branches {
		n += b.Commits
	}
	return n
}

func (s *Summary) TotalFileChanges() int {
	n := 0
	for _, b := range s.Branches {
		n += b.FileChanges
	}
	return n
}

// ExitCode maps the invocation outcome to the process exit status:
// 0 when every branch synced, 1 when nothing synced, 2 on partial
// success.
func (s *Summary) ExitCode() int {
	switch {
	case len(s.Branches) == 0:
		return 1
	case s.Failed() == 0:
		return 0
	case s.Synced() == 0:
		return 1
	default:
		return 2
	}
}
