package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BoundaryViolationError reports a path resolution that escaped the allowed
// root. It carries full diagnostic context for audit logging.
type BoundaryViolationError struct {
	UserPath     string
	ResolvedPath string
	AllowedRoot  string
	Operation    string
}

// Error implements the error interface.
func (e *BoundaryViolationError) Error() string {
	op := e.Operation
	if op == "" {
		op = "access"
	}
	return fmt.Sprintf("boundary violation during %s: %q resolves to %q outside allowed root %q",
		op, e.UserPath, e.ResolvedPath, e.AllowedRoot)
}

// BoundaryValidator confines path resolution to a single allowed root
// directory. Traversal that stays inside the root is permitted and
// normalized; anything that resolves outside it is rejected.
type BoundaryValidator struct {
	allowedRoot string
}

// NewBoundaryValidator creates a validator rooted at allowedRoot. The root is
// resolved to an absolute path immediately so later checks compare against a
// stable base.
func NewBoundaryValidator(allowedRoot string) (*BoundaryValidator, error) {
	if allowedRoot == "" {
		return nil, fmt.Errorf("allowed root cannot be empty")
	}
	abs, err := filepath.Abs(allowedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve allowed root %q: %w", allowedRoot, err)
	}
	return &BoundaryValidator{allowedRoot: filepath.Clean(abs)}, nil
}

// AllowedRoot returns the absolute root this validator confines paths to.
func (v *BoundaryValidator) AllowedRoot() string {
	return v.allowedRoot
}

// ValidatePath resolves userPath against the allowed root and returns the
// absolute result. The root itself and any path strictly beneath it are
// accepted; absolute paths outside the root and traversal that escapes it
// raise a BoundaryViolationError. The operation string is diagnostic only.
func (v *BoundaryValidator) ValidatePath(userPath, operation string) (string, error) {
	if userPath == "" {
		return "", &BoundaryViolationError{
			UserPath:    userPath,
			AllowedRoot: v.allowedRoot,
			Operation:   operation,
		}
	}
	if strings.Contains(userPath, "\x00") {
		return "", &BoundaryViolationError{
			UserPath:    strings.ReplaceAll(userPath, "\x00", "\\x00"),
			AllowedRoot: v.allowedRoot,
			Operation:   operation,
		}
	}

	resolved := userPath
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(v.allowedRoot, resolved)
	}
	resolved = filepath.Clean(resolved)

	if !v.contains(resolved) {
		return "", &BoundaryViolationError{
			UserPath:     userPath,
			ResolvedPath: resolved,
			AllowedRoot:  v.allowedRoot,
			Operation:    operation,
		}
	}

	return resolved, nil
}

// ValidatePaths validates each path in order, failing on the first violation.
func (v *BoundaryValidator) ValidatePaths(userPaths []string, operation string) ([]string, error) {
	resolved := make([]string, 0, len(userPaths))
	for _, p := range userPaths {
		abs, err := v.ValidatePath(p, operation)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}

// Basename validates the path and returns its final segment.
func (v *BoundaryValidator) Basename(userPath string) (string, error) {
	resolved, err := v.ValidatePath(userPath, "basename")
	if err != nil {
		return "", err
	}
	return filepath.Base(resolved), nil
}

// contains reports whether abs is the allowed root or strictly beneath it.
func (v *BoundaryValidator) contains(abs string) bool {
	if abs == v.allowedRoot {
		return true
	}
	return strings.HasPrefix(abs, v.allowedRoot+string(filepath.Separator))
}
