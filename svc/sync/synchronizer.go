package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/openclaw/gateway-core/pkg/logger"
	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
)

// ConfigSource fetches pages of tenant records from the cloud backend.
// CloudClient is the production implementation; tests supply a fake.
type ConfigSource interface {
	FetchConfigs(ctx context.Context, since, cursor string) (ConfigsPage, error)
}

// TenantUpdater is the subset of svc/tenant.Manager the synchronizer
// needs, kept as an interface so this package never imports svc/tenant.
type TenantUpdater interface {
	UpdateConfigs(records []tenantpkg.CloudTenantRecord) int
	RecordSyncFailure(msg string)
}

// Result is the synchronous outcome of SyncNow.
type Result struct {
	Success      bool
	UsersUpdated int
	Error        error
}

// Synchronizer runs the background config-sync state machine described
// in component 4.5.
type Synchronizer struct {
	source  ConfigSource
	manager TenantUpdater
	logger  *slog.Logger
	cfg     Config

	sfg singleflight.Group

	mu                  sync.Mutex
	since               string
	cursor              string
	hasMore             bool
	consecutiveFailures int
	backoff             retry.Backoff
	cancel              context.CancelFunc
	done                chan struct{}
	started             bool
}

// NewSynchronizer builds a Synchronizer. manager and source must be
// non-nil.
func NewSynchronizer(source ConfigSource, manager TenantUpdater, cfg Config, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Synchronizer{
		source:  source,
		manager: manager,
		logger:  logger,
		cfg:     cfg,
		backoff: freshBackoff(cfg),
	}
}

func freshBackoff(cfg Config) retry.Backoff {
	b, _ := retry.NewExponential(cfg.InitialRetryDelay)
	return retry.WithCappedDuration(cfg.MaxRetryDelay, b)
}

// Start begins the periodic sync loop. The first run happens
// immediately. Idempotent.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop cancels the sync loop and waits for it to exit.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

func (s *Synchronizer) run(ctx context.Context) {
	defer close(s.done)

	delay := time.Duration(0) // first run is immediate
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		result := s.SyncNow(ctx)
		delay = s.nextDelay(result)
	}
}

func (s *Synchronizer) nextDelay(result Result) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.Success {
		if s.hasMore {
			return s.cfg.PageFollowupDelay
		}
		return s.cfg.SyncInterval
	}

	next, _ := s.backoff.Next()
	return next
}

// SyncNow performs one synchronous sync round: fetch, apply, and update
// backoff state. Reentrant calls while a sync is already in flight are
// coalesced onto the in-flight call via singleflight and return its
// result, matching the spec's sync_in_progress no-op semantics without a
// distinct sentinel error.
func (s *Synchronizer) SyncNow(ctx context.Context) Result {
	v, _, _ := s.sfg.Do("sync", func() (any, error) {
		return s.doSync(ctx), nil
	})
	return v.(Result)
}

func (s *Synchronizer) doSync(ctx context.Context) Result {
	s.mu.Lock()
	since := s.since
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.source.FetchConfigs(ctx, since, cursor)
	if err != nil {
		s.mu.Lock()
		s.consecutiveFailures++
		failures := s.consecutiveFailures
		s.mu.Unlock()

		s.manager.RecordSyncFailure(err.Error())
		if failures >= s.cfg.AlertThreshold {
			s.logger.Error("config sync failing repeatedly", logger.RetryCount(failures), logger.Error(err))
		}
		return Result{Success: false, Error: fmt.Errorf("fetching configs: %w", err)}
	}

	updated := s.manager.UpdateConfigs(page.Users)

	s.mu.Lock()
	s.since = page.SyncTimestamp.Format(time.RFC3339)
	s.hasMore = page.HasMore
	if page.HasMore {
		s.cursor = page.NextCursor
	} else {
		s.cursor = "" // fresh window on the next full-interval fetch
	}
	s.consecutiveFailures = 0
	s.backoff = freshBackoff(s.cfg)
	s.mu.Unlock()

	return Result{Success: true, UsersUpdated: updated}
}
