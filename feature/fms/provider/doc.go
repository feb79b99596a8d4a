// Package provider contains the FMS provider adapters.
//
// Each external property-management system gets one adapter implementing
// the Provider interface. Adapters are selected through a closed Registry
// keyed by models.ProviderType, never by duck-typing on arbitrary strings.
//
// Adapter failures (timeout, auth, malformed payload) are wrapped in
// apperr.ProviderError by the sync orchestrator and abort the run before
// any change is persisted.
package provider
