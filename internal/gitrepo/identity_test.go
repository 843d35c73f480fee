package gitrepo

import (
	"testing"

	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRemoteURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"https with .git", "https://github.com/org/repo.git", "github.com/org/repo"},
		{"https without .git", "https://github.com/org/repo", "github.com/org/repo"},
		{"http", "http://gitlab.example.com/team/project.git", "gitlab.example.com/team/project"},
		{"ssh", "git@github.com:org/repo.git", "github.com/org/repo"},
		{"ssh without .git", "git@bitbucket.org:org/repo", "bitbucket.org/org/repo"},
		{"nested path", "https://gitlab.com/group/subgroup/repo.git", "gitlab.com/group/subgroup/repo"},
		{"unrecognized passes through", "file:///srv/git/repo", "file:///srv/git/repo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRemoteURL(tt.url))
		})
	}
}

func TestRepoIDFromOrigin(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.commit("first")

	_, err := f.repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:example/mirror.git"},
	})
	require.NoError(t, err)

	r := f.reader()
	assert.Equal(t, "github.com/example/mirror", r.RepoID())
	assert.Equal(t, "mirror", r.RepoName())
	assert.Equal(t, "git@github.com:example/mirror.git", r.RepoURL())
}

func TestRepoIDNoOrigin(t *testing.T) {
	f := newFixtureRepo(t)
	f.write("a.txt", "one\n")
	f.commit("first")

	r := f.reader()
	assert.Equal(t, "", r.RepoID())
	assert.Equal(t, "", r.RepoName())
}
