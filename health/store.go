package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/nscache/cache"
)

// checkKey is read on every store check. It is never written.
const checkKey = "__nscache_health_check__"

// StatsStore is a store that reports its own occupancy.
type StatsStore interface {
	cache.Store
	Stats() cache.StoreStats
}

// StoreCheckerConfig configures the store health checker.
type StoreCheckerConfig struct {
	// WarningThreshold is the fraction of capacity that triggers degraded
	// status. Value should be between 0 and 1. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the fraction of capacity that triggers unhealthy
	// status. Value should be between 0 and 1. Default: 0.95
	CriticalThreshold float64
}

// StoreChecker checks that the shared cache store answers reads and has
// room for new entries. An unbounded store is never reported full.
type StoreChecker struct {
	store  StatsStore
	config StoreCheckerConfig
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(store StatsStore, config StoreCheckerConfig) *StoreChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &StoreChecker{store: store, config: config}
}

func (s *StoreChecker) Name() string {
	return "store"
}

func (s *StoreChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if _, _, err := s.store.TryGet(ctx, checkKey); err != nil {
		return Unhealthy("store unavailable", err)
	}

	stats := s.store.Stats()
	details := map[string]any{
		"entries":  stats.Entries,
		"expired":  stats.Expired,
		"capacity": stats.Capacity,
	}
	if stats.Capacity == 0 {
		return Healthy(fmt.Sprintf("%d entries, unbounded", stats.Entries)).WithDetails(details)
	}

	usage := float64(stats.Entries) / float64(stats.Capacity)
	details["usage_percent"] = usage * 100

	switch {
	case usage >= s.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("store usage critical: %.1f%%", usage*100), ErrCheckFailed).WithDetails(details)
	case usage >= s.config.WarningThreshold:
		return Degraded(fmt.Sprintf("store usage high: %.1f%%", usage*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("store usage normal: %.1f%%", usage*100)).WithDetails(details)
	}
}

var _ StatsStore = (*cache.MemoryStore)(nil)
