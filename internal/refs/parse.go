package refs

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/templit/internal/errors"
)

// registryKeywords are the reserved first segments that route a reference to
// the built-in registry instead of GitHub shorthand. Kept deliberately small:
// widening it (e.g. with "community") would shadow legitimate
// community/<repo> shorthands.
var registryKeywords = map[string]bool{
	"registry": true,
	"official": true,
}

// defaultNamespace is used for two-segment registry references.
const defaultNamespace = "official"

// archiveExtensions mark a URL path as a tarball reference.
var archiveExtensions = []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar", ".zip"}

// Parse classifies a raw template reference. Branch priority:
//
//  1. local path prefixes (./ ../ ~/ or absolute)
//  2. explicit scheme:// URLs (github.com gets dedicated handling)
//  3. reserved registry keywords
//  4. owner/repo GitHub shorthand, with optional #branch and subpath
//
// Anything else is an unsupported format error.
func Parse(input string) (Reference, error) {
	if isLocalPath(input) {
		return Local{Path: input, Parameters: map[string]string{}}, nil
	}

	if strings.Contains(input, "://") {
		return parseFullURL(input)
	}

	base, params := splitQuery(input)
	base, fragment := splitFragment(base)

	segments := splitSegments(base)
	switch {
	case len(segments) >= 2 && registryKeywords[segments[0]]:
		return parseRegistry(segments, params)
	case len(segments) >= 2:
		return parseShorthand(segments, fragment, params)
	}

	return nil, errors.NewUnsupportedFormatError(
		"unsupported template URL format: " + input).
		WithContext("url", input)
}

// parseFullURL handles explicit scheme:// references.
func parseFullURL(input string) (Reference, error) {
	parsed, err := url.Parse(input)
	if err != nil {
		return nil, errors.NewUnsupportedFormatError(
			"malformed URL: " + input).
			WithContext("url", input)
	}

	params := flattenQuery(parsed.Query())

	if strings.EqualFold(parsed.Hostname(), "github.com") {
		return parseGitHubURL(parsed, params)
	}

	for _, ext := range archiveExtensions {
		if strings.HasSuffix(strings.ToLower(parsed.Path), ext) {
			return Tarball{URL: input, Parameters: params}, nil
		}
	}

	return GenericURL{
		Protocol:   parsed.Scheme,
		Hostname:   parsed.Hostname(),
		Pathname:   parsed.Path,
		Parameters: params,
	}, nil
}

// parseGitHubURL distinguishes plain repo, /tree/<branch>[/subpath], and
// /archive/... forms, stripping a trailing .git from the repo name.
func parseGitHubURL(parsed *url.URL, params map[string]string) (Reference, error) {
	segments := splitSegments(parsed.Path)
	if len(segments) < 2 {
		return nil, errors.NewUnsupportedFormatError(
			"GitHub URL must include owner and repository: " + parsed.String()).
			WithContext("url", parsed.String())
	}

	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".git")
	rest := segments[2:]

	if len(rest) == 0 {
		return GithubRepo{Owner: owner, Repo: repo, Parameters: params}, nil
	}

	switch rest[0] {
	case "tree":
		if len(rest) < 2 {
			return nil, errors.NewUnsupportedFormatError(
				"GitHub tree URL missing branch: " + parsed.String()).
				WithContext("url", parsed.String())
		}
		return GithubBranch{
			Owner:      owner,
			Repo:       repo,
			Branch:     rest[1],
			Subpath:    path.Join(rest[2:]...),
			Parameters: params,
		}, nil
	case "archive":
		return GithubArchive{
			Owner:      owner,
			Repo:       repo,
			ArchiveURL: parsed.String(),
			Parameters: params,
		}, nil
	default:
		return GithubRepo{
			Owner:      owner,
			Repo:       repo,
			Subpath:    path.Join(rest...),
			Parameters: params,
		}, nil
	}
}

// parseRegistry handles registry/<template> and <keyword>/<ns>/<template>.
func parseRegistry(segments []string, params map[string]string) (Reference, error) {
	switch len(segments) {
	case 2:
		return Registry{
			Namespace:  defaultNamespace,
			Template:   segments[1],
			Parameters: params,
		}, nil
	case 3:
		return Registry{
			Namespace:  segments[1],
			Template:   segments[2],
			Parameters: params,
		}, nil
	default:
		return nil, errors.NewUnsupportedFormatError(
			"registry reference must be registry/<template> or <keyword>/<namespace>/<template>").
			WithContext("url", strings.Join(segments, "/"))
	}
}

// parseShorthand handles owner/repo[/subpath][#branch[/subpath]].
func parseShorthand(segments []string, fragment string, params map[string]string) (Reference, error) {
	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".git")
	subpath := segments[2:]

	branch := ""
	if fragment != "" {
		fragSegments := splitSegments(fragment)
		branch = fragSegments[0]
		subpath = append(subpath, fragSegments[1:]...)
	}

	return GithubShorthand{
		Owner:      owner,
		Repo:       repo,
		Subpath:    path.Join(subpath...),
		Branch:     branch,
		Parameters: params,
	}, nil
}

func isLocalPath(input string) bool {
	return strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") ||
		strings.HasPrefix(input, "~/") ||
		filepath.IsAbs(input)
}

func splitQuery(input string) (string, map[string]string) {
	base, query, found := strings.Cut(input, "?")
	if !found {
		return input, map[string]string{}
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return base, map[string]string{}
	}
	return base, flattenQuery(values)
}

func splitFragment(input string) (string, string) {
	base, fragment, _ := strings.Cut(input, "#")
	return base, fragment
}

func splitSegments(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func flattenQuery(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
