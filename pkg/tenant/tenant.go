package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant as reported by the cloud
// backend. Only StatusActive may authenticate.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusExpired:
		return true
	default:
		return false
	}
}

// CloudTenantRecord is the upstream wire shape consumed by the synchronizer
// and returned by token verification. Wire fields are snake_case; JSON tags
// map them onto the camelCase names used internally.
type CloudTenantRecord struct {
	UserID         string         `json:"user_id"`
	GatewayToken   string         `json:"gateway_token"`
	OpenclawConfig map[string]any `json:"openclaw_config"`
	Status         Status         `json:"status"`
	LLMAPIKey      string         `json:"llm_api_key,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Instance is the authoritative in-memory record for a loaded user.
//
// A zero-value Instance is not usable; construct with NewInstance so the
// internal correlation id is populated. Fields below the blank line are
// owned by the tenant manager and must only be mutated while holding the
// instance's lock.
type Instance struct {
	id uuid.UUID // internal correlation id, exposed only through ID(); never used in a path or auth decision

	UserID    string
	Status    Status
	Config    map[string]any
	LLMAPIKey string
	Paths     Paths

	lastActivityAt  time.Time
	pendingRequests int
}

// NewInstance builds an Instance from a verified/synced record and its
// derived paths, with pendingRequests == 0 and lastActivityAt set to now.
func NewInstance(userID string, status Status, config map[string]any, llmAPIKey string, paths Paths, now time.Time) *Instance {
	return &Instance{
		id:             uuid.New(),
		UserID:         userID,
		Status:         status,
		Config:         config,
		LLMAPIKey:      llmAPIKey,
		Paths:          paths,
		lastActivityAt: now,
	}
}

// ID returns the instance's internal correlation id.
func (i *Instance) ID() uuid.UUID { return i.id }

// LastActivityAt returns the last time this instance was touched.
// Callers must hold the instance's lock.
func (i *Instance) LastActivityAt() time.Time { return i.lastActivityAt }

// PendingRequests returns the current in-flight request count.
// Callers must hold the instance's lock.
func (i *Instance) PendingRequests() int { return i.pendingRequests }

// Touch updates lastActivityAt to now. Callers must hold the instance's lock.
func (i *Instance) Touch(now time.Time) { i.lastActivityAt = now }

// IncrementPending bumps the pending counter and touches activity.
// Callers must hold the instance's lock.
func (i *Instance) IncrementPending(now time.Time) {
	i.pendingRequests++
	i.lastActivityAt = now
}

// DecrementPending drops the pending counter, floored at zero, and touches
// activity. A no-op when already zero. Callers must hold the instance's lock.
func (i *Instance) DecrementPending(now time.Time) {
	if i.pendingRequests > 0 {
		i.pendingRequests--
	}
	i.lastActivityAt = now
}

// Snapshot is a copied, lock-free view of an Instance safe to hand to
// callers outside the manager's lock boundary (Monitor, CLI façade).
type Snapshot struct {
	UserID          string
	Status          Status
	PendingRequests int
	LastActivityAt  time.Time
}

// Snapshot copies the observable fields of i. Callers must hold the
// instance's lock while calling this.
func (i *Instance) Snapshot() Snapshot {
	return Snapshot{
		UserID:          i.UserID,
		Status:          i.Status,
		PendingRequests: i.pendingRequests,
		LastActivityAt:  i.lastActivityAt,
	}
}
