// Package refs classifies raw template references into typed variants.
// Parsing is pure string logic; no variant constructor touches the
// filesystem or network. Path resolution happens later in the resolver.
package refs

// Kind identifies a reference variant.
type Kind string

const (
	KindLocal           Kind = "local"
	KindGithubShorthand Kind = "github-shorthand"
	KindGithubRepo      Kind = "github"
	KindGithubBranch    Kind = "github-branch"
	KindGithubArchive   Kind = "github-archive"
	KindRegistry        Kind = "registry"
	KindTarball         Kind = "tarball"
	KindGenericURL      Kind = "url"
)

// Reference is a classified template reference. Implementations are immutable
// value types produced fresh per Parse call.
type Reference interface {
	Kind() Kind
	// Params returns query-string derived parameters, never nil.
	Params() map[string]string
}

// Local is a filesystem reference (./, ../, ~/, or absolute).
type Local struct {
	Path       string
	Parameters map[string]string
}

func (r Local) Kind() Kind                { return KindLocal }
func (r Local) Params() map[string]string { return nonNil(r.Parameters) }

// GithubShorthand is a compact owner/repo reference, optionally with a
// subpath and a #branch suffix. Branch is empty when absent.
type GithubShorthand struct {
	Owner      string
	Repo       string
	Subpath    string
	Branch     string
	Parameters map[string]string
}

func (r GithubShorthand) Kind() Kind                { return KindGithubShorthand }
func (r GithubShorthand) Params() map[string]string { return nonNil(r.Parameters) }

// GithubRepo is a full https://github.com/owner/repo URL.
type GithubRepo struct {
	Owner      string
	Repo       string
	Subpath    string
	Parameters map[string]string
}

func (r GithubRepo) Kind() Kind                { return KindGithubRepo }
func (r GithubRepo) Params() map[string]string { return nonNil(r.Parameters) }

// GithubBranch is a github.com /tree/<branch>[/subpath] URL.
type GithubBranch struct {
	Owner      string
	Repo       string
	Branch     string
	Subpath    string
	Parameters map[string]string
}

func (r GithubBranch) Kind() Kind                { return KindGithubBranch }
func (r GithubBranch) Params() map[string]string { return nonNil(r.Parameters) }

// GithubArchive is a github.com /archive/... URL. Recognized but not
// resolvable; the resolver reports it as unsupported.
type GithubArchive struct {
	Owner      string
	Repo       string
	ArchiveURL string
	Parameters map[string]string
}

func (r GithubArchive) Kind() Kind                { return KindGithubArchive }
func (r GithubArchive) Params() map[string]string { return nonNil(r.Parameters) }

// Registry is a registry/<template> or <keyword>/<namespace>/<template>
// reference into the built-in template registry.
type Registry struct {
	Namespace  string
	Template   string
	Parameters map[string]string
}

func (r Registry) Kind() Kind                { return KindRegistry }
func (r Registry) Params() map[string]string { return nonNil(r.Parameters) }

// Tarball is an archive URL. Recognized but not resolvable.
type Tarball struct {
	URL        string
	Parameters map[string]string
}

func (r Tarball) Kind() Kind                { return KindTarball }
func (r Tarball) Params() map[string]string { return nonNil(r.Parameters) }

// GenericURL is any other scheme://host URL. Recognized but not resolvable.
type GenericURL struct {
	Protocol   string
	Hostname   string
	Pathname   string
	Parameters map[string]string
}

func (r GenericURL) Kind() Kind                { return KindGenericURL }
func (r GenericURL) Params() map[string]string { return nonNil(r.Parameters) }

// ExtractParameters returns the reference's query parameters, or an empty map
// for a nil reference.
func ExtractParameters(ref Reference) map[string]string {
	if ref == nil {
		return map[string]string{}
	}
	return ref.Params()
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
