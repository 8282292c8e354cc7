package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/gateway-core/pkg/eventbus"
	"github.com/openclaw/gateway-core/pkg/logger"
	"github.com/openclaw/gateway-core/pkg/provisioner"
	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
	"github.com/openclaw/gateway-core/pkg/workspace"
)

// verifyTimeout bounds the upstream verify-token call so one slow
// authenticator never stalls others.
const verifyTimeout = 5 * time.Second

type entry struct {
	mu       sync.Mutex
	inst     *tenantpkg.Instance
	resolver *workspace.Resolver
}

// Manager is the central tenant directory and bounded cache described in
// component 4.4. The zero value is not usable; construct with NewManager.
type Manager struct {
	cfg         Config
	provisioner *provisioner.Provisioner
	verifier    Verifier
	logger      *slog.Logger
	bus         *eventbus.Bus[eventbus.Event]

	mu         sync.RWMutex
	instances  map[string]*entry
	tokenIndex map[string]string // gatewayToken -> userId

	statsMu      sync.Mutex
	cacheHits    int64
	cacheMisses  int64
	syncFailures int64
	lastSyncAt   time.Time
	knownUsers   map[string]struct{} // every userId ever loaded or synced, never shrinks on eviction

	cleanupCancel context.CancelFunc
	cleanupDone   chan struct{}
	startMu       sync.Mutex
	started       bool
}

// NewManager builds a Manager. verifier may be nil only if the caller
// never expects a cache miss to reach the upstream verify path (e.g.
// single-user mode never calls AuthenticateToken).
func NewManager(cfg Config, prov *provisioner.Provisioner, verifier Verifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:         cfg.withDefaults(),
		provisioner: prov,
		verifier:    verifier,
		logger:      logger,
		bus:         eventbus.New[eventbus.Event](),
		instances:   make(map[string]*entry),
		tokenIndex:  make(map[string]string),
		knownUsers:  make(map[string]struct{}),
	}
}

// noteKnownUser records userId as part of the directory's known total,
// independent of whether it stays resident in the bounded cache.
func (m *Manager) noteKnownUser(userID string) {
	m.statsMu.Lock()
	m.knownUsers[userID] = struct{}{}
	m.statsMu.Unlock()
}

// Events returns the bus carrying the manager's lifecycle events.
func (m *Manager) Events() *eventbus.Bus[eventbus.Event] { return m.bus }

// Start begins the periodic cleanup tick. Idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	if m.started {
		return
	}
	m.started = true

	ctx, cancel := context.WithCancel(ctx)
	m.cleanupCancel = cancel
	m.cleanupDone = make(chan struct{})

	go func() {
		defer close(m.cleanupDone)
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupInactive()
			}
		}
	}()
}

// Stop cancels the cleanup tick and waits for it to exit. Existing
// instances remain cached for graceful drain; Stop does not evict.
func (m *Manager) Stop() {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	if !m.started {
		return
	}
	m.cleanupCancel()
	<-m.cleanupDone
	m.started = false
}

// AuthenticateToken resolves token to a userId, refreshing activity on a
// cache hit and falling through to the upstream verify call on a miss.
func (m *Manager) AuthenticateToken(ctx context.Context, token string) (string, error) {
	m.mu.RLock()
	userID, known := m.tokenIndex[token]
	var e *entry
	if known {
		e = m.instances[userID]
	}
	m.mu.RUnlock()

	if known && e != nil {
		e.mu.Lock()
		status := e.inst.Status
		if status == tenantpkg.StatusActive {
			e.inst.Touch(time.Now())
			e.mu.Unlock()
			m.recordHit()
			return userID, nil
		}
		e.mu.Unlock()

		ev := eventbus.Event{At: time.Now(), UserID: userID}
		if status == tenantpkg.StatusSuspended {
			ev.Type = eventbus.EventUserSuspended
		} else {
			ev.Type = eventbus.EventUserExpired
		}
		m.bus.Publish(ev)
		return "", ErrUnauthenticated
	}

	m.recordMiss()

	if m.verifier == nil {
		return "", ErrUnauthenticated
	}

	vctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	rec, err := m.verifier.VerifyToken(vctx, token)
	if err != nil {
		m.logger.Warn("token verify failed", logger.Error(err))
		return "", ErrUnauthenticated
	}
	if !rec.Status.Valid() || rec.Status != tenantpkg.StatusActive {
		return "", ErrUnauthenticated
	}

	if rec.GatewayToken == "" {
		rec.GatewayToken = token
	}
	if err := m.loadAndCache(rec); err != nil {
		m.logger.Warn("provisioning after verify failed", logger.UserID(rec.UserID), logger.Error(err))
		return "", ErrUnauthenticated
	}

	m.mu.Lock()
	m.tokenIndex[token] = rec.UserID
	m.mu.Unlock()

	return rec.UserID, nil
}

// GetInstance returns a copied, lock-free snapshot for userId, loading
// and provisioning it from the on-disk config on a cache miss. Returns
// ErrNotFound (no error wrapping a fault) when no on-disk config exists.
func (m *Manager) GetInstance(userID string) (tenantpkg.Snapshot, error) {
	m.mu.RLock()
	e, ok := m.instances[userID]
	m.mu.RUnlock()

	if ok {
		m.recordHit()
		e.mu.Lock()
		e.inst.Touch(time.Now())
		snap := e.inst.Snapshot()
		e.mu.Unlock()
		return snap, nil
	}

	m.recordMiss()

	paths, err := tenantpkg.DerivePaths(m.cfg.ConfigRoot, m.cfg.WorkspaceRoot, userID)
	if err != nil {
		return tenantpkg.Snapshot{}, err
	}

	rec, err := readConfig(paths)
	if err != nil {
		return tenantpkg.Snapshot{}, err
	}

	if err := m.loadAndCache(rec); err != nil {
		return tenantpkg.Snapshot{}, err
	}

	m.mu.RLock()
	e = m.instances[rec.UserID]
	m.mu.RUnlock()

	e.mu.Lock()
	snap := e.inst.Snapshot()
	e.mu.Unlock()
	return snap, nil
}

// GetResolver returns the workspace resolver bound to userId, or false
// if userId is not currently cached.
func (m *Manager) GetResolver(userID string) (*workspace.Resolver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.instances[userID]
	if !ok {
		return nil, false
	}
	return e.resolver, true
}

// loadAndCache provisions rec's directory tree, constructs its Instance
// and Resolver, and inserts them into the cache, publishing user-loaded.
// Callers must not hold m.mu.
func (m *Manager) loadAndCache(rec tenantpkg.CloudTenantRecord) error {
	paths, err := tenantpkg.DerivePaths(m.cfg.ConfigRoot, m.cfg.WorkspaceRoot, rec.UserID)
	if err != nil {
		return err
	}

	if m.provisioner != nil {
		if err := m.provisioner.Provision(paths, rec.LLMAPIKey); err != nil {
			return fmt.Errorf("provisioning %s: %w", paths.UserID, err)
		}
	}

	if err := persistConfig(paths, rec); err != nil {
		return fmt.Errorf("persisting config for %s: %w", paths.UserID, err)
	}

	inst := tenantpkg.NewInstance(paths.UserID, rec.Status, rec.OpenclawConfig, rec.LLMAPIKey, paths, time.Now())
	resolver := workspace.New(paths.UserID, paths.WorkspacePath, m.cfg.TemplatePath, paths.MemoryPath)

	m.mu.Lock()
	m.instances[paths.UserID] = &entry{inst: inst, resolver: resolver}
	if rec.GatewayToken != "" {
		m.tokenIndex[rec.GatewayToken] = paths.UserID
	}
	m.mu.Unlock()

	m.noteKnownUser(paths.UserID)
	m.bus.Publish(eventbus.Event{Type: eventbus.EventUserLoaded, UserID: paths.UserID, At: time.Now()})
	return nil
}

// UpdateConfigs bulk-applies records from a sync round. One failing
// record does not abort the batch. Sets lastSyncAt and resets
// syncFailures on completion.
func (m *Manager) UpdateConfigs(records []tenantpkg.CloudTenantRecord) int {
	applied := 0
	for _, rec := range records {
		if err := m.applyOne(rec); err != nil {
			m.logger.Warn("applying synced config failed", logger.UserID(rec.UserID), logger.Error(err))
			continue
		}
		applied++
	}

	m.statsMu.Lock()
	m.lastSyncAt = time.Now()
	m.syncFailures = 0
	m.statsMu.Unlock()

	m.bus.Publish(eventbus.Event{Type: eventbus.EventConfigSynced, SyncedCount: applied, At: time.Now()})
	return applied
}

func (m *Manager) applyOne(rec tenantpkg.CloudTenantRecord) error {
	paths, err := tenantpkg.DerivePaths(m.cfg.ConfigRoot, m.cfg.WorkspaceRoot, rec.UserID)
	if err != nil {
		return err
	}
	if err := persistConfig(paths, rec); err != nil {
		return err
	}

	m.noteKnownUser(rec.UserID)

	m.mu.Lock()
	// A token may re-bind from one user to another: sever the prior link.
	for tok, uid := range m.tokenIndex {
		if uid == rec.UserID && tok != rec.GatewayToken {
			delete(m.tokenIndex, tok)
		}
	}
	if rec.GatewayToken != "" {
		m.tokenIndex[rec.GatewayToken] = rec.UserID
	}
	e, cached := m.instances[rec.UserID]
	m.mu.Unlock()

	if !cached {
		return nil
	}

	e.mu.Lock()
	prevStatus := e.inst.Status
	e.inst.Config = rec.OpenclawConfig
	e.inst.Status = rec.Status
	e.inst.LLMAPIKey = rec.LLMAPIKey
	e.mu.Unlock()

	if prevStatus != rec.Status {
		m.emitStatusTransition(rec.UserID, rec.Status)
	}
	return nil
}

func (m *Manager) emitStatusTransition(userID string, status tenantpkg.Status) {
	switch status {
	case tenantpkg.StatusSuspended:
		m.bus.Publish(eventbus.Event{Type: eventbus.EventUserSuspended, UserID: userID, At: time.Now()})
	case tenantpkg.StatusExpired:
		m.bus.Publish(eventbus.Event{Type: eventbus.EventUserExpired, UserID: userID, At: time.Now()})
	}
}

// RecordSyncFailure increments the sync-failure counter and emits
// sync-failed with the running count.
func (m *Manager) RecordSyncFailure(msg string) {
	m.statsMu.Lock()
	m.syncFailures++
	count := m.syncFailures
	m.statsMu.Unlock()

	m.bus.Publish(eventbus.Event{
		Type:                 eventbus.EventSyncFailed,
		SyncError:            msg,
		ConsecutiveSyncFails: int(count),
		At:                   time.Now(),
	})
}

// IncrementPending bumps userId's pending-request counter and refreshes
// its activity timestamp. Returns false if userId is not cached.
func (m *Manager) IncrementPending(userID string) bool {
	// Hold the read lock through the increment so evict, which takes the
	// write lock, cannot remove the entry between lookup and increment.
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.instances[userID]
	if !ok {
		return false
	}
	e.mu.Lock()
	e.inst.IncrementPending(time.Now())
	e.mu.Unlock()
	return true
}

// DecrementPending drops userId's pending-request counter, floored at
// zero, and refreshes its activity timestamp. Returns false if userId is
// not cached.
func (m *Manager) DecrementPending(userID string) bool {
	m.mu.RLock()
	e, ok := m.instances[userID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.inst.DecrementPending(time.Now())
	e.mu.Unlock()
	return true
}

// CleanupInactive runs the idle pass followed by the LRU pass, returning
// the total number of instances evicted.
func (m *Manager) CleanupInactive() int {
	evicted := m.idlePass()
	evicted += m.lruPass()
	return evicted
}

// idlePass scans for candidates that look idle-and-unused, then hands
// each to evict, which re-checks pendingRequests in the same critical
// section as the removal. A candidate that picks up a new request
// between the scan and the evict call is left in place.
func (m *Manager) idlePass() int {
	now := time.Now()
	var candidates []string

	m.mu.RLock()
	for userID, e := range m.instances {
		e.mu.Lock()
		idle := e.inst.PendingRequests() == 0 && now.Sub(e.inst.LastActivityAt()) > m.cfg.UserIdleTimeout
		e.mu.Unlock()
		if idle {
			candidates = append(candidates, userID)
		}
	}
	m.mu.RUnlock()

	sort.Strings(candidates) // deterministic order among equally-idle instances

	evicted := 0
	for _, userID := range candidates {
		if _, removed, _ := m.evict(userID, eventbus.EvictReasonIdle, false); removed {
			evicted++
		}
	}
	return evicted
}

// lruPass scans for the oldest candidate with zero pending requests and
// evicts it, re-checked atomically at removal time by evict. If a
// candidate gained pending work since the scan, evict refuses it and the
// next iteration's scan picks a different victim.
func (m *Manager) lruPass() int {
	evicted := 0
	for {
		m.mu.RLock()
		over := len(m.instances) > m.cfg.MaxCachedUsers
		m.mu.RUnlock()
		if !over {
			return evicted
		}

		victim, ok := m.oldestEvictable()
		if !ok {
			return evicted // everything remaining has pending work
		}
		if _, removed, _ := m.evict(victim, eventbus.EvictReasonLRU, false); removed {
			evicted++
		}
	}
}

// oldestEvictable finds the instance with the oldest lastActivityAt among
// those with zero pending requests. Ties break on userId for a stable,
// first-encountered-in-sorted-order winner.
func (m *Manager) oldestEvictable() (string, bool) {
	type candidate struct {
		userID string
		at     time.Time
	}

	m.mu.RLock()
	candidates := make([]candidate, 0, len(m.instances))
	for userID, e := range m.instances {
		e.mu.Lock()
		if e.inst.PendingRequests() == 0 {
			candidates = append(candidates, candidate{userID: userID, at: e.inst.LastActivityAt()})
		}
		e.mu.Unlock()
	}
	m.mu.RUnlock()

	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].userID < candidates[j].userID
		}
		return candidates[i].at.Before(candidates[j].at)
	})
	return candidates[0].userID, true
}

// ForceEvict removes userId from the cache; when it has pending requests
// it refuses unless force is true.
// Returns whether anything was removed.
func (m *Manager) ForceEvict(userID string, force bool) (bool, error) {
	found, removed, pending := m.evict(userID, eventbus.EvictReasonManual, force)
	if !found {
		return false, nil
	}
	if !removed {
		return false, fmt.Errorf("tenant: %s has %d pending requests, refusing evict without force", userID, pending)
	}
	return true, nil
}

// evict removes userId from the cache if it is evictable: force is true,
// or its pendingRequests count is zero at the moment of removal. The
// pending check and the map delete happen under the same m.mu write
// lock, so a concurrent IncrementPending (which must itself acquire
// m.mu to look up the entry before it can touch pendingRequests) can
// never race between a caller's earlier idle/LRU scan and this removal:
// either it lands first and evict sees pending > 0, or it blocks behind
// this call and finds the entry already gone.
//
// found reports whether userId was cached at all; removed reports
// whether it was actually deleted; pending is its pending count as
// observed during the attempt.
func (m *Manager) evict(userID string, reason eventbus.EvictReason, force bool) (found, removed bool, pending int) {
	m.mu.Lock()
	e, ok := m.instances[userID]
	if !ok {
		m.mu.Unlock()
		return false, false, 0
	}

	e.mu.Lock()
	pending = e.inst.PendingRequests()
	e.mu.Unlock()

	if pending > 0 && !force {
		m.mu.Unlock()
		return true, false, pending
	}

	delete(m.instances, userID)
	for tok, uid := range m.tokenIndex {
		if uid == userID {
			delete(m.tokenIndex, tok)
		}
	}
	m.mu.Unlock()

	m.bus.Publish(eventbus.Event{Type: eventbus.EventUserEvicted, UserID: userID, EvictReason: reason, At: time.Now()})
	return true, true, pending
}

// Stats returns a copy of the manager's current counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	active := len(m.instances)
	m.mu.RUnlock()

	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return Stats{
		ActiveInstances: active,
		TotalUsers:      len(m.knownUsers),
		CacheHits:       m.cacheHits,
		CacheMisses:     m.cacheMisses,
		SyncFailures:    m.syncFailures,
		LastSyncAt:      m.lastSyncAt,
	}
}

// ListUserIDs returns the currently cached user ids, sorted.
func (m *Manager) ListUserIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.instances))
	for userID := range m.instances {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

// HasToken reports whether token currently resolves to a user.
func (m *Manager) HasToken(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tokenIndex[token]
	return ok
}

func (m *Manager) recordHit() {
	m.statsMu.Lock()
	m.cacheHits++
	m.statsMu.Unlock()
}

func (m *Manager) recordMiss() {
	m.statsMu.Lock()
	m.cacheMisses++
	m.statsMu.Unlock()
}
