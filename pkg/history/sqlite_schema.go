package history

// SchemaVersion is the current history schema version.
const SchemaVersion = 1

// schemaStatements create the history tables. Timestamps are stored as unix
// nanoseconds so both SQLite drivers read them back identically.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS evaluations (
		id                TEXT PRIMARY KEY,
		system_id         TEXT NOT NULL,
		model_ref         TEXT NOT NULL,
		model_version     TEXT NOT NULL,
		evaluated_at      INTEGER NOT NULL,
		activated_domains TEXT NOT NULL DEFAULT '[]',
		derived_controls  TEXT NOT NULL DEFAULT '[]',
		missing_answers   TEXT NOT NULL DEFAULT '[]',
		result_json       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_evaluated_at ON evaluations(evaluated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_system ON evaluations(system_id, evaluated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_model_ref ON evaluations(model_ref)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`,
}

const (
	insertSchemaVersion = `INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT(version) DO NOTHING`
	getSchemaVersion    = `SELECT COALESCE(MAX(version), 0) FROM schema_version`

	insertRecord = `INSERT OR REPLACE INTO evaluations (
		id, system_id, model_ref, model_version, evaluated_at,
		activated_domains, derived_controls, missing_answers, result_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `id, system_id, model_ref, model_version, evaluated_at,
		activated_domains, derived_controls, missing_answers, result_json`

	deleteBefore = `DELETE FROM evaluations WHERE evaluated_at < ?`
)
