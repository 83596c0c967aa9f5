// Package history records evaluation outcomes so that a system's control set
// can be traced over time and across model versions.
//
// Three backends implement Store:
//
//	sqlite3  SQLite through github.com/mattn/go-sqlite3 (requires cgo)
//	sqlite   SQLite through modernc.org/sqlite (pure Go)
//	memory   process-local, for tests and throwaway servers
//
// Open selects the backend from config.HistoryConfig:
//
//	store, err := history.Open(cfg.History, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec, err := history.NewRecord("billing", ev.ModelRef, ev.ModelVersion, ev.Result, time.Now())
//	err = store.Store(ctx, rec)
//
// Records are returned newest first. Export writes them as JSON or CSV, and
// the retention subpackage prunes old records on a cron schedule.
package history
