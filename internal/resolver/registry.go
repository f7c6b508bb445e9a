package resolver

import (
	"sort"

	"github.com/conneroisu/templit/internal/errors"
)

// builtinRegistry enumerates the official template sources reachable through
// registry/<template> references. Registry entries are expected to be fully
// known; an unknown namespace or template is a hard error, not a cache miss.
var builtinRegistry = map[string]map[string]string{
	"official": {
		"nextjs-app":  "https://github.com/templit-templates/nextjs-app",
		"react-app":   "https://github.com/templit-templates/react-app",
		"go-api":      "https://github.com/templit-templates/go-api",
		"go-cli":      "https://github.com/templit-templates/go-cli",
		"static-site": "https://github.com/templit-templates/static-site",
	},
}

// LookupRegistrySource resolves a registry reference to its source URL.
func LookupRegistrySource(namespace, template string) (string, error) {
	ns, ok := builtinRegistry[namespace]
	if !ok {
		return "", errors.NewRegistryLookupError(namespace, template)
	}
	source, ok := ns[template]
	if !ok {
		return "", errors.NewRegistryLookupError(namespace, template)
	}
	return source, nil
}

// RegistryTemplates returns the known templates per namespace, sorted, for
// listing in CLI output.
func RegistryTemplates() map[string][]string {
	out := make(map[string][]string, len(builtinRegistry))
	for namespace, templates := range builtinRegistry {
		names := make([]string, 0, len(templates))
		for name := range templates {
			names = append(names, name)
		}
		sort.Strings(names)
		out[namespace] = names
	}
	return out
}
