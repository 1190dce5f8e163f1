// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - AuthorizationStore: Authorization record persistence
//   - TokenExchanger: Code exchange and refresh against provider token endpoints
//   - RefreshLease: Per-key write serialisation (in-process or Redis)
//   - SecretSealer: Encryption of secrets at rest
//
// # Consumer Interfaces
//
//   - TokenProvider: Valid access tokens for downstream API clients
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
