package cache

import (
	"net/url"
	"regexp"
	"strings"
)

// shorthandPattern matches GitHub owner/repo shorthand, optionally with a
// trailing .git.
var shorthandPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// unsafeNameChars is replaced when deriving filesystem-safe entry names.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// NormalizeRepoURL canonicalizes a repository reference for hashing and
// cloning. Filesystem paths and explicit-scheme URLs pass through unchanged;
// GitHub shorthand (user/repo, user/repo.git) expands to the canonical
// https://github.com/user/repo.git form.
func NormalizeRepoURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	if isPathLike(trimmed) || strings.Contains(trimmed, "://") || isSCPLike(trimmed) {
		return trimmed
	}

	if shorthandPattern.MatchString(strings.TrimSuffix(trimmed, ".git")) {
		return "https://github.com/" + strings.TrimSuffix(trimmed, ".git") + ".git"
	}

	return trimmed
}

// ProtocolFromURL derives the protocol component of a repo hash: "local" for
// filesystem-like references, the scheme for explicit URLs, and "git" for
// SCP-style git@host:path remotes.
func ProtocolFromURL(rawURL string) string {
	if scheme, _, found := strings.Cut(rawURL, "://"); found && scheme != "" {
		return strings.ToLower(scheme)
	}
	if isSCPLike(rawURL) {
		return "git"
	}
	return "local"
}

// RepoNameFromURL derives the name component of a repo hash. GitHub URLs,
// SCP-style remotes included, use <owner>-<repo>; everything else uses the
// last path segment minus .git, sanitized for filesystem use.
func RepoNameFromURL(rawURL string) string {
	// SCP remotes never survive url.Parse (the colon lands in the first
	// path segment), so dissect host:owner/repo by hand first.
	if host, path, ok := splitSCPRemote(rawURL); ok {
		if strings.EqualFold(host, "github.com") {
			if name, ok := githubEntryName(splitPathSegments(path)); ok {
				return name
			}
		}
	} else if parsed, err := url.Parse(rawURL); err == nil && strings.EqualFold(parsed.Hostname(), "github.com") {
		if name, ok := githubEntryName(splitPathSegments(parsed.Path)); ok {
			return name
		}
	}

	cleaned := strings.TrimSuffix(strings.TrimRight(rawURL, "/"), ".git")
	if idx := strings.LastIndexAny(cleaned, "/:"); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	if cleaned == "" {
		return "repo"
	}
	return sanitizeName(cleaned)
}

// githubEntryName builds the <owner>-<repo> entry name from URL path
// segments.
func githubEntryName(segments []string) (string, bool) {
	if len(segments) < 2 {
		return "", false
	}
	owner := sanitizeName(segments[0])
	repo := sanitizeName(strings.TrimSuffix(segments[1], ".git"))
	return owner + "-" + repo, true
}

// splitSCPRemote dissects a git@host:path remote into host and path.
func splitSCPRemote(rawURL string) (host, path string, ok bool) {
	if !isSCPLike(rawURL) {
		return "", "", false
	}
	_, rest, _ := strings.Cut(rawURL, "@")
	host, path, ok = strings.Cut(rest, ":")
	if host == "" || path == "" {
		return "", "", false
	}
	return host, path, ok
}

func sanitizeName(name string) string {
	sanitized := unsafeNameChars.ReplaceAllString(name, "-")
	if sanitized == "" {
		return "repo"
	}
	return sanitized
}

func isPathLike(rawURL string) bool {
	return strings.HasPrefix(rawURL, "/") ||
		strings.HasPrefix(rawURL, "./") ||
		strings.HasPrefix(rawURL, "../") ||
		strings.HasPrefix(rawURL, "~/")
}

// isSCPLike reports git@host:path style remotes.
func isSCPLike(rawURL string) bool {
	return strings.Contains(rawURL, "@") &&
		strings.Contains(rawURL, ":") &&
		!strings.Contains(rawURL, "://")
}

func splitPathSegments(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
