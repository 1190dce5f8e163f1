// Package domain defines the core business entities for delegate.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ServiceIdentifier: The fixed set of integrations (calendar, video, music)
//   - ServiceCatalog: Immutable service -> provider, scopes, endpoints mapping
//   - AuthorizationRecord: Stored credentials for one owner/service pair
//   - TokenSet: Tokens returned by a code exchange or refresh
//   - AuthError: The typed error taxonomy crossing the authorization boundary
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
