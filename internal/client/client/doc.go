// Package client talks to the gophidentity HTTP API on behalf of the CLI.
//
// HTTPClient keeps the bearer token returned by login, register and profile
// updates and sends it on every authenticated call. Server error payloads are
// surfaced as *APIError; transport failures as ErrUnavailable. Callers match
// both with errors.Is / errors.As.
package client
