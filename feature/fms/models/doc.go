// Package models defines the persistent data model of the FMS sync engine:
// provider configuration, sync logs, reviewable changes, entity mappings,
// and the internal users/units/assignments the apply engine mutates.
//
// Two identifier spaces meet here. External entities carry the provider's
// external_id; internal rows carry our ids. The EntityMapping table is the
// only bridge between the two, unique on
// (facility_id, entity_type, provider_type, external_id).
package models
