package sqlite

// schema defines the task table. The (user_id, source, source_id) index is
// a lookup index only: the deduplication engine owns the at-most-one
// guarantee for that triple, so no UNIQUE constraint is declared here.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TEXT,
	context     TEXT NOT NULL DEFAULT 'work',
	priority    INTEGER NOT NULL DEFAULT 3,
	source      TEXT NOT NULL,
	source_id   TEXT,
	confidence  REAL NOT NULL DEFAULT 1.0,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_source_id
	ON tasks(user_id, source, source_id);

CREATE INDEX IF NOT EXISTS idx_tasks_user_source
	ON tasks(user_id, source);
`
