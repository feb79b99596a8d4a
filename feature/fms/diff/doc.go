// Package diff computes reviewable changes between an FMS provider's
// snapshot and the facility's internal access-control state.
//
// The engine performs a three-way set comparison per entity type: external
// entities are partitioned into mapped and unmapped through the entity
// mapping table, unmapped ones become *_added changes, mapped internal
// entities missing from the snapshot become *_removed, and mapped entities
// present on both sides are compared over a fixed field set to produce
// *_updated changes whose before/after capture only the fields that differ.
//
// Compute is pure: no clock, no I/O, no dependence on input ordering.
// Re-running it against unchanged inputs yields an empty change set.
package diff
