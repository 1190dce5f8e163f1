// Package cli is the command-line driving adapter.
//
// Commands are thin: they resolve a Runtime through the factory passed to
// Execute and call the AuthorizationService driving port.
package cli
