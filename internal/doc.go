// Package internal contains the core implementation packages for templit.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the templit CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - cache: Repository cache with TTL expiry, corruption detection, and
//     atomic population
//   - config: Configuration management with defaults and alias tables
//   - errors: Structured error types with classification and context
//   - gitclone: Shallow git clone support for cache population
//   - logging: Structured logging with operation events
//   - refs: Template reference parsing and classification
//   - resolver: Reference-to-filesystem resolution and registry lookup
//   - validation: URL security checks and filesystem boundary enforcement
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - The resolver orchestrates validation, parsing, registry lookup, and
//     cache access for each reference
//   - The cache manager accepts an injected cloner so transport can be
//     swapped or faked in tests
//   - Validation is applied before any reference reaches the network or
//     the filesystem
//
// # Security Considerations
//
// Security is implemented at multiple layers:
//
//   - The validation package rejects injection tokens, null bytes, and
//     restricted system locations before parsing begins
//   - Boundary validation resolves every user-supplied path and confines
//     it to its allowed root
//   - Cache population stages into hidden directories and renames
//     atomically, so a failed fetch never leaves a partial entry
//
// For detailed documentation, see the individual package documentation.
package internal
