// Package retention deletes evaluation history older than a configured age,
// either on demand or on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/history"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain records.
	// 0 or less keeps records forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning, e.g.
	// "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	PruneSchedule string
}

// FromConfig extracts the retention settings from the history configuration.
func FromConfig(cfg config.HistoryConfig) Config {
	return Config{RetentionDays: cfg.RetentionDays, PruneSchedule: cfg.PruneSchedule}
}

// Pruner enforces the retention period on a history store.
type Pruner struct {
	store  history.Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner for store.
func NewPruner(store history.Store, cfg Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: cfg,
		logger: logger.With("component", "history.retention"),
		now:    time.Now,
	}
}

// Cutoff returns the instant before which records are pruned, and false when
// retention is unlimited.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.config.RetentionDays <= 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.config.RetentionDays), true
}

// Prune deletes records older than the retention period and returns how many
// were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune records older than %d days: %w", p.config.RetentionDays, err)
	}

	if deleted == 0 {
		p.logger.Debug("no records pruned", "retention_days", p.config.RetentionDays)
	} else {
		p.logger.Info("history pruning completed",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}
