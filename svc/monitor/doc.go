// Package monitor periodically snapshots the tenant manager's stats and
// process memory, raising threshold-driven alerts, and subscribes to
// the manager's event bus to elevate repeated sync failures into an
// alert as well. A bounded pkg/cache.LRUCache keeps a rolling history of
// recent snapshots, read back through History.
package monitor
