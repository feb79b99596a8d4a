// Package server holds configuration for the HTTP server.
//
// The actual Fiber application is assembled in cmd/start.go; this package
// only carries the listen port and the API key checked by the auth
// middleware.
package server
