// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// AuthorizationService runs the consent flow; RefreshCoordinator keeps at
// most one refresh per owner and service in flight.
package services
