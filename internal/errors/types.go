// Package errors provides structured error types for template resolution,
// cache management, and input validation. Errors carry a category, a stable
// code, and optional context so callers can branch on failure class without
// string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeSecurity    ErrorType = "security"
	ErrorTypeBoundary    ErrorType = "boundary"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeCache       ErrorType = "cache"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRegistry    ErrorType = "registry"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeInternal    ErrorType = "internal"
)

// TemplitError is a structured error type with context.
type TemplitError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *TemplitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TemplitError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *TemplitError) Is(target error) bool {
	var t *TemplitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TemplitError) WithContext(key string, value interface{}) *TemplitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *TemplitError) WithComponent(component string) *TemplitError {
	e.Component = component

	return e
}

// Error creation functions

// NewValidationError creates a validation error for malformed or unsafe input.
func NewValidationError(code, message string) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewSecurityError creates a security error for injection or traversal input.
func NewSecurityError(code, message string) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewUnsupportedFormatError creates an error naming an unrecognized or
// recognized-but-unimplemented reference format.
func NewUnsupportedFormatError(feature string) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeUnsupported,
		Code:        "unsupported_format",
		Message:     feature,
		Recoverable: false,
	}
}

// NewUpstreamFetchError wraps a clone/network failure with repository context.
func NewUpstreamFetchError(repoURL, branch string, cause error) *TemplitError {
	err := &TemplitError{
		Type:        ErrorTypeNetwork,
		Code:        "upstream_fetch_failed",
		Message:     fmt.Sprintf("failed to fetch repository %s", repoURL),
		Cause:       cause,
		Recoverable: false,
	}
	err = err.WithContext("repoUrl", repoURL)
	if branch != "" {
		err = err.WithContext("branch", branch)
	}

	return err
}

// NewRegistryLookupError creates an error for an unknown registry entry.
func NewRegistryLookupError(namespace, template string) *TemplitError {
	err := &TemplitError{
		Type:        ErrorTypeRegistry,
		Code:        "registry_lookup_failed",
		Message:     fmt.Sprintf("unknown registry template %s/%s", namespace, template),
		Recoverable: false,
	}

	return err.WithContext("namespace", namespace).WithContext("template", template)
}

// NewCacheError creates a cache error. Cache-state anomalies are normally
// self-healing; this type is reserved for genuine I/O failures.
func NewCacheError(code, message string, cause error) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeCache,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TemplitError {
	return &TemplitError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Classification helpers

// IsValidationError checks if an error is validation-related.
func IsValidationError(err error) bool {
	var te *TemplitError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeValidation || te.Type == ErrorTypeSecurity
	}

	return false
}

// IsUnsupportedFormatError checks if an error names an unsupported format.
func IsUnsupportedFormatError(err error) bool {
	var te *TemplitError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeUnsupported
	}

	return false
}

// IsUpstreamFetchError checks if an error is a propagated clone/network failure.
func IsUpstreamFetchError(err error) bool {
	var te *TemplitError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeNetwork
	}

	return false
}

// IsRegistryLookupError checks if an error is a registry lookup failure.
func IsRegistryLookupError(err error) bool {
	var te *TemplitError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeRegistry
	}

	return false
}
