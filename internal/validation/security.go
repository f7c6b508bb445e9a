// Package validation provides security validation for template references and
// filesystem path containment. All checks here are pure string/path logic and
// run before any classification, filesystem, or network activity.
package validation

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/templit/internal/errors"
)

// injectionTokens are shell metacharacters that enable command injection when
// a reference leaks into a subprocess invocation. A reference containing any
// of these is rejected outright, even if the remainder would parse cleanly.
var injectionTokens = []string{";", "|", "&", "`", "$(", "${"}

// restrictedPaths are system locations a template reference may never point
// into, regardless of how the traversal is spelled.
var restrictedPaths = []string{
	"/etc/",
	"/proc/",
	"/sys/",
	"/dev/",
	"/root/",
	"/boot/",
}

// maxParentTraversal is the number of leading "../" segments a local reference
// may carry. One level covers sibling-directory templates; deeper traversal
// escapes the project area and is rejected.
const maxParentTraversal = 1

// ValidateTemplateURL validates a raw template reference before it is
// classified or touches any I/O. It returns the input unchanged on success.
func ValidateTemplateURL(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.NewValidationError("empty_url", "template URL cannot be empty")
	}

	if strings.Contains(rawURL, "\x00") {
		return "", errors.NewSecurityError("null_byte", "template URL contains a null byte").
			WithContext("url", strings.ReplaceAll(rawURL, "\x00", "\\x00"))
	}

	for _, token := range injectionTokens {
		if strings.Contains(rawURL, token) {
			return "", errors.NewSecurityError("injection_character",
				"template URL contains shell metacharacter "+token).
				WithContext("url", rawURL)
		}
	}

	if err := checkTraversal(rawURL); err != nil {
		return "", err
	}

	return rawURL, nil
}

// checkTraversal rejects local-path references that escape the safe root or
// target restricted system locations. URL-shaped input is exempt; its path
// component never reaches the local filesystem directly.
func checkTraversal(rawURL string) error {
	if strings.Contains(rawURL, "://") {
		return nil
	}

	cleaned := filepath.ToSlash(filepath.Clean(rawURL))

	depth := 0
	for _, segment := range strings.Split(cleaned, "/") {
		if segment == ".." {
			depth++
		}
	}
	if depth > maxParentTraversal {
		return errors.NewSecurityError("path_traversal",
			"template path traverses outside the allowed directory").
			WithContext("url", rawURL)
	}

	// Restricted-location checks only apply to paths that leave the project
	// area: absolute paths and parent-directory traversals. A plain relative
	// segment like "dev/templates" is a legitimate template name.
	if !strings.HasPrefix(cleaned, "/") && !strings.HasPrefix(cleaned, "..") {
		return nil
	}

	probe := cleaned
	for strings.HasPrefix(probe, "../") {
		probe = strings.TrimPrefix(probe, "../")
	}
	lower := strings.ToLower(probe)
	if !strings.HasPrefix(lower, "/") {
		lower = "/" + lower
	}
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(lower, restricted) || lower+"/" == restricted {
			return errors.NewSecurityError("restricted_path",
				"template path targets a restricted system directory").
				WithContext("url", rawURL)
		}
	}

	return nil
}
