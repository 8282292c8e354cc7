package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/openclaw/gateway-core/pkg/cache"
	"github.com/openclaw/gateway-core/pkg/eventbus"
	"github.com/openclaw/gateway-core/pkg/logger"
	svctenant "github.com/openclaw/gateway-core/svc/tenant"
)

// ManagerStats is the subset of svc/tenant.Manager the monitor reads.
type ManagerStats interface {
	Stats() svctenant.Stats
	Events() *eventbus.Bus[eventbus.Event]
}

// Snapshot is one tick's observation: manager stats plus process memory.
type Snapshot struct {
	At              time.Time
	ActiveInstances int
	TotalUsers      int
	SyncFailures    int64
	LastSyncAt      time.Time
	HeapAllocMB     float64
}

// Alert is an out-of-band condition raised by a snapshot or an event.
type Alert struct {
	At       time.Time
	Severity Severity
	Message  string
}

// Config tunes the monitor's interval and alert thresholds. Zero values
// take the documented defaults.
type Config struct {
	Interval               time.Duration
	HeapMBThreshold        float64
	ActivePercentThreshold float64
	SyncFailuresThreshold  int64
	HistorySize            int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.HeapMBThreshold <= 0 {
		c.HeapMBThreshold = 512
	}
	if c.ActivePercentThreshold <= 0 {
		c.ActivePercentThreshold = 90
	}
	if c.SyncFailuresThreshold <= 0 {
		c.SyncFailuresThreshold = 4
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 100
	}
	return c
}

// AlertFunc receives every Alert as it is raised.
type AlertFunc func(Alert)

// Monitor runs the periodic snapshot/alert loop described in component
// 4.7. It also subscribes to the manager's event bus to elevate
// sync-failed past threshold into an alert outside the tick cadence.
type Monitor struct {
	manager ManagerStats
	cfg     Config
	logger  *slog.Logger
	onAlert AlertFunc

	history *cache.LRUCache[int64, Snapshot]
	seq     int64

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	started     bool
	unsubscribe func()
}

// New builds a Monitor. onAlert may be nil to discard alerts (the
// history is still recorded).
func New(manager ManagerStats, cfg Config, logger *slog.Logger, onAlert AlertFunc) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Monitor{
		manager: manager,
		cfg:     cfg,
		logger:  logger,
		onAlert: onAlert,
		history: cache.NewLRUCache[int64, Snapshot](cfg.HistorySize),
	}
}

// Start begins the tick loop and subscribes to manager events.
// Idempotent.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.unsubscribe = m.manager.Events().Subscribe(m.handleEvent)
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop cancels the tick loop and unsubscribes from manager events.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	unsubscribe := m.unsubscribe
	m.mu.Unlock()

	cancel()
	<-done
	unsubscribe()

	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.tick()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	snap := m.Snapshot()
	m.record(snap)
	m.evaluate(snap)
}

// Snapshot takes one reading without recording or alerting.
func (m *Monitor) Snapshot() Snapshot {
	stats := m.manager.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		At:              time.Now(),
		ActiveInstances: stats.ActiveInstances,
		TotalUsers:      stats.TotalUsers,
		SyncFailures:    stats.SyncFailures,
		LastSyncAt:      stats.LastSyncAt,
		HeapAllocMB:     float64(mem.HeapAlloc) / (1024 * 1024),
	}
}

func (m *Monitor) record(snap Snapshot) {
	seq := m.nextSeq()
	m.history.Put(seq, snap)
}

func (m *Monitor) nextSeq() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

func (m *Monitor) evaluate(snap Snapshot) {
	if snap.HeapAllocMB > m.cfg.HeapMBThreshold {
		m.raise(Alert{At: snap.At, Severity: SeverityWarning,
			Message: fmt.Sprintf("heap usage %.1fMB exceeds threshold %.1fMB", snap.HeapAllocMB, m.cfg.HeapMBThreshold)})
	}

	if snap.TotalUsers > 0 {
		pct := float64(snap.ActiveInstances) / float64(snap.TotalUsers) * 100
		if pct > m.cfg.ActivePercentThreshold {
			m.raise(Alert{At: snap.At, Severity: SeverityWarning,
				Message: fmt.Sprintf("active/total %.1f%% exceeds threshold %.1f%%", pct, m.cfg.ActivePercentThreshold)})
		}
	}

	if snap.SyncFailures >= m.cfg.SyncFailuresThreshold {
		m.raise(Alert{At: snap.At, Severity: SeverityError,
			Message: fmt.Sprintf("sync failures %d reached threshold %d", snap.SyncFailures, m.cfg.SyncFailuresThreshold)})
	}
}

func (m *Monitor) handleEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.EventUserLoaded, eventbus.EventUserEvicted, eventbus.EventUserSuspended, eventbus.EventUserExpired:
		m.logger.Info("tenant lifecycle event", logger.EventType(string(ev.Type)), logger.UserID(ev.UserID))
	case eventbus.EventSyncFailed:
		if int64(ev.ConsecutiveSyncFails) >= m.cfg.SyncFailuresThreshold {
			m.raise(Alert{At: ev.At, Severity: SeverityCritical,
				Message: fmt.Sprintf("sync failed %d consecutive times: %s", ev.ConsecutiveSyncFails, ev.SyncError)})
		}
	}
}

func (m *Monitor) raise(a Alert) {
	m.logger.Warn("monitor alert", "severity", string(a.Severity), "message", a.Message)
	if m.onAlert != nil {
		m.onAlert(a)
	}
}

// History returns the most recent snapshots, oldest first, up to the
// configured history size.
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	seq := m.seq
	m.mu.Unlock()

	var out []Snapshot
	start := seq - int64(m.cfg.HistorySize) + 1
	if start < 1 {
		start = 1
	}
	for i := start; i <= seq; i++ {
		if snap, ok := m.history.Get(i); ok {
			out = append(out, snap)
		}
	}
	return out
}
