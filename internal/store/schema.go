package store

// currentSchemaVersion is the schema version this binary expects. It is
// materialized into metadata on first creation and checked on every open.
const currentSchemaVersion = 1

// schemaSQL creates every table and index trop's store needs. Statements
// are idempotent (IF NOT EXISTS) so re-running them against an
// already-initialized database is a no-op.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	path         TEXT NOT NULL,
	tag          TEXT NOT NULL DEFAULT '',
	port         INTEGER NOT NULL,
	project      TEXT,
	task         TEXT,
	group_id     TEXT,
	created_at   TEXT NOT NULL,
	last_used_at TEXT NOT NULL,
	PRIMARY KEY (path, tag),
	UNIQUE (port)
);

CREATE INDEX IF NOT EXISTS idx_reservations_port ON reservations(port);
CREATE INDEX IF NOT EXISTS idx_reservations_project ON reservations(project);
CREATE INDEX IF NOT EXISTS idx_reservations_last_used_at ON reservations(last_used_at);
`
