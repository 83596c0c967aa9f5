package history

import (
	"fmt"
	"log/slog"

	"mercator-hq/riskctl/pkg/config"
)

// Open creates the store selected by cfg.Driver. It does not look at
// cfg.Enabled; callers decide whether to record at all.
func Open(cfg config.HistoryConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case DriverCGO, DriverPureGo, "":
		return NewSQLiteStore(SQLiteConfig{
			Driver:      cfg.Driver,
			Path:        cfg.Path,
			BusyTimeout: cfg.BusyTimeout,
		}, logger)
	default:
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver))
	}
}
