// Package cache provides a namespaced, generically-typed cache over a shared
// expiring key/value store.
//
// A Store is the substrate: one physical key space with per-entry TTLs.
// Shared pairs a Store with the lock table used by every Namespaced cache
// built on it. Namespaced[T] isolates a logical cache by prefixing keys with
// "<prefix>_", serializes check-then-act sequences under that lock table and
// absorbs store faults, reporting them as false or absent.
package cache
