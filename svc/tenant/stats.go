package tenant

import "time"

// Stats is a read-only snapshot of the Manager's counters, safe to hand
// to the Monitor or the CLI façade.
type Stats struct {
	ActiveInstances int // instances currently resident in the bounded cache
	TotalUsers      int // distinct users ever loaded or synced, regardless of eviction
	CacheHits       int64
	CacheMisses     int64
	SyncFailures    int64
	LastSyncAt      time.Time
}
