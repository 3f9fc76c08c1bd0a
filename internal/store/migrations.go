package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions and turns",
		SQL: `
			CREATE TABLE sessions (
				id         TEXT PRIMARY KEY,
				owner_id   TEXT NOT NULL,
				problem    TEXT NOT NULL,
				code       TEXT NOT NULL,
				created_at TEXT NOT NULL
			);

			CREATE INDEX idx_sessions_owner ON sessions (owner_id, created_at DESC);

			CREATE TABLE turns (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				seq        INTEGER NOT NULL,
				role       TEXT NOT NULL,
				text       TEXT NOT NULL
			);

			CREATE UNIQUE INDEX idx_turns_session_seq ON turns (session_id, seq);
		`,
	},
}
