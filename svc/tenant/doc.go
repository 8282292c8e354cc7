// Package tenant implements the Tenant Manager: the central, in-memory
// authority over which users are currently loaded, which gateway tokens
// resolve to which user, and when an idle or excess instance is evicted.
//
// The Manager owns two maps guarded by a single RWMutex: instances, whose
// entries bundle each tenant instance with its workspace resolver, and
// tokenIndex. Each entry carries its own lock for the fields mutated on
// the hot path (pendingRequests, lastActivityAt, status, config). A
// background cleanup tick drives eviction; callers drive authentication,
// config updates, and pending-request bookkeeping directly.
package tenant
