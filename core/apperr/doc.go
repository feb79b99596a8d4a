// Package apperr defines the error taxonomy shared by the FMS engine and
// its HTTP surface.
//
// Services return typed errors (ValidationError, NotFoundError,
// AuthorizationError, ConflictError, ProviderError, ApplyError); handlers
// translate them to HTTP statuses through StatusCode. Resources the caller
// cannot access surface as NotFoundError rather than AuthorizationError so
// responses never disclose which facility owns a resource.
package apperr
