package sqlite

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	question   TEXT NOT NULL,
	draft      TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	run_id     TEXT    NOT NULL,
	step       INTEGER NOT NULL,
	nodes      TEXT    NOT NULL,
	next       TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (run_id, step)
);
`
