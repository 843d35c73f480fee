package gitrepo

import (
	"regexp"
	"strings"
)

var (
	sshRemoteRe   = regexp.MustCompile(`^git@([^:]+):(.+?)(?:\.git)?$`)
	httpsRemoteRe = regexp.MustCompile(`^https?://([^/]+)/(.+?)(?:\.git)?$`)
)

// RepoURL returns the origin remote URL, or "" when no origin remote is
// configured.
func (r *Reader) RepoURL() string {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// RepoID derives a stable repository identifier from the origin remote
// URL: git@github.com:org/repo.git and https://github.com/org/repo.git
// both normalize to github.com/org/repo. Returns "" when no origin remote
// is configured; unrecognized URL shapes pass through unchanged.
func (r *Reader) RepoID() string {
	return NormalizeRemoteURL(r.RepoURL())
}

// RepoName returns the last path segment of the repository identifier.
func (r *Reader) RepoName() string {
	id := r.RepoID()
	if id == "" {
		return ""
	}
	parts := strings.Split(id, "/")
	return parts[len(parts)-1]
}

// NormalizeRemoteURL maps a git remote URL to the host/path repo id form.
func NormalizeRemoteURL(url string) string {
	if url == "" {
		return ""
	}

	if m := sshRemoteRe.FindStringSubmatch(url); m != nil {
		return m[1] + "/" + m[2]
	}
	if m := httpsRemoteRe.FindStringSubmatch(url); m != nil {
		return m[1] + "/" + m[2]
	}

	return url
}
