// Package file loads delegate configuration from disk and the environment.
//
// Non-secret settings live in a TOML file, by default ~/.delegate/config.toml.
// Client secrets, the encryption key and the Redis address come from
// DELEGATE_* environment variables and never from the file.
//
// The built-in provider endpoints come from golang.org/x/oauth2/endpoints;
// the file only needs client ids unless an endpoint is overridden.
package file
