// Package resolver orchestrates template resolution: registry alias
// expansion, security validation, reference classification, cache-backed
// path resolution, and best-effort template metadata loading.
package resolver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/templit/internal/cache"
	"github.com/conneroisu/templit/internal/config"
	"github.com/conneroisu/templit/internal/errors"
	"github.com/conneroisu/templit/internal/logging"
	"github.com/conneroisu/templit/internal/refs"
	"github.com/conneroisu/templit/internal/validation"
)

// TemplateMetadataFile is the optional descriptor at a template root.
const TemplateMetadataFile = "template.json"

// Options tune a single resolution.
type Options struct {
	// Branch overrides the branch for git-backed references when the
	// reference itself carries none.
	Branch string
	// TTLHours overrides the cache TTL for populations this resolution
	// triggers. Zero uses the configured default.
	TTLHours float64
}

// TemplateMetadata is the parsed template.json descriptor.
type TemplateMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	TemplatePath string
	Parameters   map[string]string
	Metadata     *TemplateMetadata
}

// Resolver turns raw template references into local template directories.
type Resolver struct {
	config *config.Config
	cache  *cache.Manager
	logger logging.Logger
}

// New creates a resolver. The cache manager owns all clone state; the config
// supplies alias maps and the default TTL.
func New(cfg *config.Config, cacheManager *cache.Manager, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Resolver{
		config: cfg,
		cache:  cacheManager,
		logger: logger.WithComponent("resolver"),
	}
}

// ResolveTemplate runs the full pipeline: alias resolution, security
// validation, classification, path resolution, metadata load.
func (r *Resolver) ResolveTemplate(ctx context.Context, rawURL string, opts Options) (*Resolved, error) {
	aliased := r.ResolveRegistryAlias(rawURL)

	validated, err := validation.ValidateTemplateURL(aliased)
	if err != nil {
		return nil, err
	}

	ref, err := refs.Parse(validated)
	if err != nil {
		return nil, err
	}

	templatePath, err := r.resolveToPath(ctx, ref, opts)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		TemplatePath: templatePath,
		Parameters:   refs.ExtractParameters(ref),
		Metadata:     r.loadTemplateMetadata(templatePath),
	}, nil
}

// ResolveRegistryAlias expands a configured alias to its source URL, or
// returns the input unchanged. Two-segment references try
// defaults.templates[ns][name] (then the legacy registries map); single
// segments try the official namespace. Local paths and explicit URLs are
// never alias candidates.
func (r *Resolver) ResolveRegistryAlias(rawURL string) string {
	if r.config == nil {
		return rawURL
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || strings.Contains(trimmed, "://") || looksLikePath(trimmed) {
		return rawURL
	}

	segments := strings.Split(trimmed, "/")
	switch len(segments) {
	case 1:
		if alias, ok := r.config.AliasLookup("official", segments[0]); ok {
			return alias
		}
	case 2:
		if alias, ok := r.config.AliasLookup(segments[0], segments[1]); ok {
			return alias
		}
	}

	return rawURL
}

// resolveToPath maps a classified reference to a local directory, consulting
// the cache for git-backed variants.
func (r *Resolver) resolveToPath(ctx context.Context, ref refs.Reference, opts Options) (string, error) {
	switch v := ref.(type) {
	case refs.Local:
		return r.resolveLocal(v)

	case refs.GithubShorthand:
		branch := v.Branch
		if branch == "" {
			branch = opts.Branch
		}
		return r.resolveGitHub(ctx, v.Owner, v.Repo, branch, v.Subpath, opts)

	case refs.GithubRepo:
		return r.resolveGitHub(ctx, v.Owner, v.Repo, opts.Branch, v.Subpath, opts)

	case refs.GithubBranch:
		return r.resolveGitHub(ctx, v.Owner, v.Repo, v.Branch, v.Subpath, opts)

	case refs.Registry:
		source, err := LookupRegistrySource(v.Namespace, v.Template)
		if err != nil {
			return "", err
		}
		return r.ensureCached(ctx, source, opts.Branch, "", opts)

	case refs.GithubArchive:
		return "", errors.NewUnsupportedFormatError("archive URLs are not yet supported")

	case refs.Tarball:
		return "", errors.NewUnsupportedFormatError("tarball URLs are not yet supported")

	case refs.GenericURL:
		return "", errors.NewUnsupportedFormatError(
			"generic URLs are not yet supported: " + v.Protocol + "://" + v.Hostname)

	default:
		return "", errors.NewUnsupportedFormatError(
			"Unsupported URL type: " + string(ref.Kind()))
	}
}

func (r *Resolver) resolveLocal(ref refs.Local) (string, error) {
	path := ref.Path
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.NewInternalError("home_dir_unavailable",
				"cannot expand ~ in template path", err)
		}
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewInternalError("path_resolve_failed",
			"cannot resolve template path "+ref.Path, err)
	}
	return abs, nil
}

func (r *Resolver) resolveGitHub(ctx context.Context, owner, repo, branch, subpath string, opts Options) (string, error) {
	cloneURL := cache.NormalizeRepoURL(owner + "/" + repo)
	return r.ensureCached(ctx, cloneURL, branch, subpath, opts)
}

func (r *Resolver) ensureCached(ctx context.Context, cloneURL, branch, subpath string, opts Options) (string, error) {
	ttl := opts.TTLHours
	if ttl <= 0 && r.config != nil {
		ttl = r.config.Cache.TTLHours
	}

	repoDir, err := r.cache.EnsureRepositoryCached(ctx, cloneURL, branch, cache.PopulateOptions{TTLHours: ttl})
	if err != nil {
		return "", err
	}

	if subpath == "" {
		return repoDir, nil
	}

	// The subpath came from user input; confine it to the entry directory.
	boundary, err := validation.NewBoundaryValidator(repoDir)
	if err != nil {
		return "", errors.NewInternalError("boundary_init_failed",
			"cannot validate template subpath", err)
	}
	return boundary.ValidatePath(subpath, "resolve_subpath")
}

// loadTemplateMetadata reads template.json from dir. Missing or invalid
// descriptors fall back to defaults derived from the directory name; this
// never fails.
func (r *Resolver) loadTemplateMetadata(dir string) *TemplateMetadata {
	fallback := &TemplateMetadata{
		ID:      filepath.Base(dir),
		Name:    filepath.Base(dir),
		Version: "1.0.0",
	}

	data, err := os.ReadFile(filepath.Join(dir, TemplateMetadataFile))
	if err != nil {
		return fallback
	}

	var meta TemplateMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		r.logger.Warn(context.Background(), err, "ignoring malformed template descriptor",
			"dir", dir)
		return fallback
	}

	if meta.ID == "" {
		meta.ID = fallback.ID
	}
	if meta.Name == "" {
		meta.Name = fallback.Name
	}
	if meta.Version == "" {
		meta.Version = fallback.Version
	}
	return &meta
}

func looksLikePath(s string) bool {
	return strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") ||
		strings.HasPrefix(s, "~/") ||
		filepath.IsAbs(s)
}
