package history

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	safe        INTEGER NOT NULL,
	action      INTEGER NOT NULL,
	escalation  INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	verdict     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS results (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	analyte       TEXT NOT NULL,
	concentration REAL NOT NULL,
	status        TEXT NOT NULL,
	multiplier    REAL NOT NULL,
	PRIMARY KEY (run_id, position)
);
`
