package sync

import "time"

// Config holds the Synchronizer's tunables. Zero values are replaced
// with the documented defaults by NewSynchronizer.
type Config struct {
	SyncInterval      time.Duration
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	AlertThreshold    int
	PageFollowupDelay time.Duration // delay before fetching the next page when hasMore
}

func (c Config) withDefaults() Config {
	if c.SyncInterval <= 0 {
		c.SyncInterval = 5 * time.Minute
	}
	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 8 * time.Second
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = 4
	}
	if c.PageFollowupDelay <= 0 {
		c.PageFollowupDelay = 100 * time.Millisecond
	}
	return c
}
