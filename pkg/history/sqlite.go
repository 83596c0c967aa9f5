package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by NewSQLiteStore.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteConfig contains configuration for the SQLite backends.
type SQLiteConfig struct {
	// Driver is DriverCGO or DriverPureGo.
	Driver string

	// Path is the database file path, or MemoryPath.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// MaxOpenConns is the maximum number of open connections. In-memory
	// databases always use a single connection.
	// Default: 4
	MaxOpenConns int
}

// SQLiteStore implements Store on SQLite through database/sql.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens the database, enables WAL mode for file databases and
// creates the schema. A database written by a newer schema is rejected.
func NewSQLiteStore(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPureGo
	}
	if cfg.Driver != DriverCGO && cfg.Driver != DriverPureGo {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver))
	}
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("database path is required"))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}

	inMemory := cfg.Path == MemoryPath
	if !inMemory {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewStorageError(cfg.Driver, "open", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, dsn(cfg))
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger.With("component", "history.sqlite", "driver", cfg.Driver),
	}
	if err := s.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("history store initialized", "path", cfg.Path)
	return s, nil
}

// dsn builds a connection string carrying the busy timeout and journal mode
// so every pooled connection gets them. The two drivers spell pragmas
// differently.
func dsn(cfg SQLiteConfig) string {
	if cfg.Path == MemoryPath {
		return MemoryPath
	}
	ms := cfg.BusyTimeout.Milliseconds()
	if cfg.Driver == DriverCGO {
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", cfg.Path, ms)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", cfg.Path, ms)
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "open", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return NewStorageError(s.config.Driver, "create_schema", err)
		}
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return NewStorageError(s.config.Driver, "check_schema_version",
			fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion))
	}
	if _, err := s.db.ExecContext(ctx, insertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return NewStorageError(s.config.Driver, "insert_schema_version", err)
	}
	return nil
}

// SchemaVersion returns the highest schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&v); err != nil {
		return 0, NewStorageError(s.config.Driver, "get_schema_version", err)
	}
	return v, nil
}

func (s *SQLiteStore) checkOpen(op string) error {
	if s.closed {
		return NewStorageError(s.config.Driver, op, ErrClosed)
	}
	return nil
}

// Store inserts or replaces a record.
func (s *SQLiteStore) Store(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError(s.config.Driver, "store", fmt.Errorf("record id is required"))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("store"); err != nil {
		return err
	}

	domains, err := encodeList(record.ActivatedDomains)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	controls, err := encodeList(record.DerivedControls)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	missing, err := encodeList(record.MissingAnswers)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	var result sql.NullString
	if len(record.Result) > 0 {
		result = sql.NullString{String: string(record.Result), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, insertRecord,
		record.ID,
		record.SystemID,
		record.ModelRef,
		record.ModelVersion,
		record.EvaluatedAt.UnixNano(),
		domains,
		controls,
		missing,
		result,
	)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("query"); err != nil {
		return nil, err
	}

	where, args := buildWhereClause(q)
	stmt := "SELECT " + selectColumns + " FROM evaluations"
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY evaluated_at DESC, id ASC"
	if q.Limit > 0 || q.Offset > 0 {
		limit := q.Limit
		if limit == 0 {
			limit = -1
		}
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "query", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, NewStorageError(s.config.Driver, "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.config.Driver, "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("count"); err != nil {
		return 0, err
	}

	where, args := buildWhereClause(q)
	stmt := "SELECT COUNT(*) FROM evaluations"
	if where != "" {
		stmt += " WHERE " + where
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, NewStorageError(s.config.Driver, "count", err)
	}
	return n, nil
}

// DeleteBefore removes records evaluated before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("delete"); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, deleteBefore, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}
	if n > 0 {
		s.logger.Debug("deleted history records", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("ping"); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	s.logger.Info("history store closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause (without the keyword) and its
// arguments from the query filters.
func buildWhereClause(q *Query) (string, []any) {
	var conditions []string
	var args []any

	if q.SystemID != "" {
		conditions = append(conditions, "system_id = ?")
		args = append(args, q.SystemID)
	}
	if q.ModelRef != "" {
		conditions = append(conditions, "model_ref = ?")
		args = append(args, q.ModelRef)
	}
	if q.Since != nil {
		conditions = append(conditions, "evaluated_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "evaluated_at <= ?")
		args = append(args, q.Until.UnixNano())
	}
	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*Record, error) {
	var (
		r                          Record
		at                         int64
		domains, controls, missing string
		result                     sql.NullString
	)
	err := rows.Scan(&r.ID, &r.SystemID, &r.ModelRef, &r.ModelVersion, &at,
		&domains, &controls, &missing, &result)
	if err != nil {
		return nil, err
	}
	r.EvaluatedAt = time.Unix(0, at).UTC()
	if r.ActivatedDomains, err = decodeList(domains); err != nil {
		return nil, fmt.Errorf("activated_domains: %w", err)
	}
	if r.DerivedControls, err = decodeList(controls); err != nil {
		return nil, fmt.Errorf("derived_controls: %w", err)
	}
	if r.MissingAnswers, err = decodeList(missing); err != nil {
		return nil, fmt.Errorf("missing_answers: %w", err)
	}
	if result.Valid && result.String != "" {
		r.Result = json.RawMessage(result.String)
	}
	return &r, nil
}

func encodeList(items []string) (string, error) {
	data, err := json.Marshal(nonNil(items))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
