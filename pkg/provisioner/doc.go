// Package provisioner materializes a tenant's on-disk workspace tree on
// first use and keeps upstream credential files current on every
// subsequent call.
//
// Provisioning is idempotent for the directory tree and for files that
// represent user-owned state (openclaw.json, HEARTBEAT.md, USER.md); it
// is refreshing for files that mirror an upstream credential
// (auth-profiles.json, models.json), since those must track key rotation
// on the cloud side.
package provisioner
