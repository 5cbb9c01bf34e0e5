package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'PENDING'
		CHECK(status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED')),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);

CREATE TABLE IF NOT EXISTS time_logs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	start_time DATETIME NOT NULL,
	end_time   DATETIME,
	duration   INTEGER CHECK(duration IS NULL OR duration >= 0)
);

CREATE INDEX IF NOT EXISTS idx_time_logs_user_start ON time_logs(user_id, start_time);
CREATE INDEX IF NOT EXISTS idx_time_logs_task_id ON time_logs(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
-- At most one running time log per task.
CREATE UNIQUE INDEX IF NOT EXISTS idx_time_logs_one_open
	ON time_logs(task_id) WHERE end_time IS NULL;

CREATE INDEX IF NOT EXISTS idx_time_logs_user_open
	ON time_logs(user_id) WHERE end_time IS NULL;

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
