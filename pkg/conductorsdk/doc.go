// Package conductorsdk is the Go client of the conductor peer API. The
// request and response types are shared with the server handlers.
package conductorsdk
