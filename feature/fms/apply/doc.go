// Package apply executes accepted, reviewed changes against the
// access-control database.
//
// Each change's mutation set (e.g. user create + mapping create +
// assignment create for tenant_added) runs in a single transaction; the
// batch as a whole is deliberately not atomic so one bad change never
// blocks the rest. Facility isolation is enforced on every write: a
// mutation whose target resolves to another facility fails that change
// with an ApplyError and is never silently executed.
//
// The deactivation rule: removing a tenant's assignment at one facility
// deactivates the account only when no active assignments remain in ANY
// facility. A tenant renting elsewhere keeps access there.
package apply
