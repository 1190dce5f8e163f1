// Package oauth is the HTTP driving adapter of the consent flow.
//
// Handler serves GET /authorize/{service}, which redirects the browser to the
// provider, and GET /callback, which completes the flow. Server runs the
// handler on a local listener for the CLI and for long-running deployments.
// No OAuth logic lives here; every request is delegated to the
// AuthorizationService driving port.
package oauth
