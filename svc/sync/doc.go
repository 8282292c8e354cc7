// Package sync implements the background Config Synchronizer: the
// periodic pull of tenant records from the cloud backend and their
// application into the tenant manager.
//
// The state machine is idle -> syncing on a fixed interval (first run
// immediate), paginating through GET /gateway/configs, and backing off
// exponentially on failure via github.com/sethvargo/go-retry. A
// golang.org/x/sync/singleflight guard makes a manually-triggered
// SyncNow reentrant-safe against the background tick.
package sync
