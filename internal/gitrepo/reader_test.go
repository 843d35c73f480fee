package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsink/pkg/models"
)

type fixtureRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	when time.Time
}

func newFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &fixtureRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixtureRepo) write(name, content string) {
	f.t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
	_, err := f.wt.Add(name)
	require.NoError(f.t, err)
}

func (f *fixtureRepo) remove(name string) {
	f.t.Helper()
	_, err := f.wt.Remove(name)
	require.NoError(f.t, err)
}

func (f *fixtureRepo) rename(from, to string) {
	f.t.Helper()
	_, err := f.wt.Move(from, to)
	require.NoError(f.t, err)
}

func (f *fixtureRepo) commit(message string) string {
	f.t.Helper()
	f.when = f.when.Add(time.Minute)
	hash, err := f.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Ada Example",
			Email: "ada@example.com",
			When:  f.when,
		},
	})
	require.NoError(f.t, err)
	return hash.String()
}

func (f *fixtureRepo) reader() *Reader {
	f.t.Helper()
	r, err := Open(f.dir)
	require.NoError(f.t, err)
	return r
}

func TestOpenNotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not a valid git repository")
}

func TestCommitsSinceFullHistory(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	first := f.commit("first")
	f.write("a.txt", "one\ntwo\n")
	second := f.commit("second")
	f.write("b.txt", "hello\n")
	third := f.commit("third")

	commits, err := f.reader().CommitsSince("", "master")
	require.NoError(t, err)
	require.Len(t, commits, 3)

	assert.Equal(t, first, commits[0].Revision)
	assert.Equal(t, second, commits[1].Revision)
	assert.Equal(t, third, commits[2].Revision)

	assert.Empty(t, commits[0].Parent)
	assert.Equal(t, first, commits[1].Parent)
	assert.Equal(t, second, commits[2].Parent)

	assert.Equal(t, "Ada Example", commits[0].AuthorName)
	assert.Equal(t, "ada@example.com", commits[0].AuthorEmail)
	assert.Equal(t, "first", commits[0].Message)
}

func TestCommitsSinceIncremental(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	first := f.commit("first")
	f.write("a.txt", "two\n")
	second := f.commit("second")
	f.write("a.txt", "three\n")
	third := f.commit("third")

	commits, err := f.reader().CommitsSince(first, "master")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, second, commits[0].Revision)
	assert.Equal(t, third, commits[1].Revision)
}

func TestCommitsSinceUpToDate(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	tip := f.commit("first")

	commits, err := f.reader().CommitsSince(tip, "master")
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestCommitsSinceDiverged(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.commit("first")

	// A revision that is not on the branch's first-parent chain
	// simulates a rewritten history.
	_, err := f.reader().CommitsSince("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", "master")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GSE3005")
}

func TestCommitsSinceUnknownBranch(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.commit("first")

	_, err := f.reader().CommitsSince("", "no-such-branch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GSE3003")
}

func TestResolveHeadRemoteFallback(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	tip := f.commit("first")

	remoteRef := plumbing.NewHashReference(
		plumbing.NewRemoteReferenceName("origin", "feature"),
		plumbing.NewHash(tip),
	)
	require.NoError(t, f.repo.Storer.SetReference(remoteRef))

	resolved, err := f.reader().ResolveHead("feature")
	require.NoError(t, err)
	assert.Equal(t, tip, resolved)
}

func TestListBranches(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	tip := f.commit("first")

	for _, name := range []string{"develop", "HEAD"} {
		ref := plumbing.NewHashReference(
			plumbing.NewRemoteReferenceName("origin", name),
			plumbing.NewHash(tip),
		)
		require.NoError(t, f.repo.Storer.SetReference(ref))
	}

	local, err := f.reader().ListBranches(false)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "master", local[0].Name)

	remote, err := f.reader().ListBranches(true)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "develop", remote[0].Name)
	assert.True(t, remote[0].IsRemote)
}

func TestDefaultBranch(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.commit("first")

	// Only master exists.
	assert.Equal(t, "master", f.reader().DefaultBranch())

	// Once a main branch exists it wins the probe.
	head, err := f.repo.Head()
	require.NoError(t, err)
	mainRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), head.Hash())
	require.NoError(t, f.repo.Storer.SetReference(mainRef))

	assert.Equal(t, "main", f.reader().DefaultBranch())
}

func TestFileChangesRootCommit(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "line one\nline two\n")
	f.write("b.bin", "binary\x00data")
	root := f.commit("initial import")

	changes, err := f.reader().FileChanges(context.Background(), root, "")
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, "a.txt", change.Path)
	assert.Equal(t, models.ChangeAdded, change.Kind)
	assert.Empty(t, change.OldPath)
	assert.Equal(t, 2, change.Additions)
	assert.Equal(t, 0, change.Deletions)
	assert.Contains(t, change.Diff, "line one")
}

func TestFileChangesModifyAndDelete(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.write("b.txt", "gone\n")
	first := f.commit("first")

	f.write("a.txt", "one\nmore\n")
	f.remove("b.txt")
	second := f.commit("second")

	changes, err := f.reader().FileChanges(context.Background(), second, first)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byPath := map[string]models.FileChangeRecord{}
	for _, c := range changes {
		byPath[c.Path] = c
	}

	assert.Equal(t, models.ChangeModified, byPath["a.txt"].Kind)
	assert.Equal(t, 1, byPath["a.txt"].Additions)
	assert.Equal(t, models.ChangeDeleted, byPath["b.txt"].Kind)
	assert.Equal(t, 1, byPath["b.txt"].Deletions)
}

func TestFileChangesRename(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("old/path.py", "print('hello')\nprint('world')\n")
	first := f.commit("first")

	f.rename("old/path.py", "new/path.py")
	second := f.commit("move module")

	changes, err := f.reader().FileChanges(context.Background(), second, first)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	change := changes[0]
	assert.Equal(t, models.ChangeRenamed, change.Kind)
	assert.Equal(t, "new/path.py", change.Path)
	assert.Equal(t, "old/path.py", change.OldPath)
}

func TestFileChangesSniffWindow(t *testing.T) {
	f := newFixtureRepo(t)
	// null byte only past the sniff window: classified text, row kept
	f.write("data.txt", strings.Repeat("a", binarySniffLen)+"\x00")
	// null byte inside the window of a blob larger than it: excluded
	f.write("blob.bin", "\x00"+strings.Repeat("b", binarySniffLen*2))
	rev := f.commit("add payloads")

	changes, err := f.reader().FileChanges(context.Background(), rev, "")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "data.txt", changes[0].Path)
	assert.Equal(t, models.ChangeAdded, changes[0].Kind)
}

func TestCurrentFiles(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "hello\n")
	f.write("b.bin", "\x00\x01\x02 binary")
	first := f.commit("first")

	f.write("big.txt", strings.Repeat("0123456789", 60))
	f.write("c.txt", "world\n")
	second := f.commit("second")

	files, err := f.reader().CurrentFiles("master", 100)
	require.NoError(t, err)
	require.Len(t, files, 2)

	byPath := map[string]models.CurrentFileRecord{}
	for _, file := range files {
		byPath[file.Path] = file
	}

	require.Contains(t, byPath, "a.txt")
	require.Contains(t, byPath, "c.txt")
	assert.NotContains(t, byPath, "b.bin")
	assert.NotContains(t, byPath, "big.txt")

	assert.Equal(t, "hello\n", byPath["a.txt"].Content)
	assert.Equal(t, int64(6), byPath["a.txt"].SizeBytes)
	assert.Equal(t, first, byPath["a.txt"].LastRevision)
	assert.Equal(t, second, byPath["c.txt"].LastRevision)
}

func TestCurrentBranchDetached(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	tip := f.commit("first")

	assert.Equal(t, "master", f.reader().CurrentBranch())

	require.NoError(t, f.wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(tip)}))
	assert.Equal(t, "", f.reader().CurrentBranch())
}
