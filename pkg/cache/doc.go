// Package cache provides a generic in-memory cache with per-entry TTL and
// LRU eviction at a bounded capacity. It backs the in-process entitlement
// cache; values must be explicitly invalidated by writers in addition to
// expiring on their own.
package cache
