// Package eventbus is a small generic pub/sub hub used by the tenant
// manager's event stream and the monitor's subscription to it.
//
// Dispatch is synchronous: Publish calls every listener inline, in
// registration order, before returning, so every listener has observed
// an event by the time the publishing call returns, with no buffering
// layer reordering or delaying delivery. The tenant manager publishes
// after releasing its own locks.
// Callers that want fire-and-forget delivery wrap their listener with
// Async.
package eventbus
