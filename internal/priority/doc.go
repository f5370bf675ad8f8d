// Package priority provides the ordered, two-key handler map shared by the
// event and hook registries.
//
// # Buckets
//
// Handlers are stored in buckets addressed by a (primary, secondary) key,
// for example (event, object type) or (hook, type). Within a bucket every
// handler occupies a unique priority slot and buckets are always read in
// ascending priority order:
//
//	m := priority.New[Handler]()
//	m.Register("create", "user", h1, 500) // slot 500
//	m.Register("create", "user", h2, 500) // slot taken, probes to 501
//	m.Lookup("create", "user")            // [h1, h2]
//
// # Wildcards
//
// Either key part may be the wildcard "all". Chain returns the buckets that
// apply to a concrete key, in the order dispatch must visit them:
//
//	(event, type) -> (all, type) -> (event, all) -> (all, all)
//
// Buckets are concatenated, never merged by priority.
//
// # Policy
//
// The map carries no dispatch semantics. Halting and value threading are
// layered on top by the event and hook packages.
package priority
