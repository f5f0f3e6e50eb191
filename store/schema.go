package store

import "time"

const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    chat_id      INTEGER,
    last_lat     REAL,
    last_lon     REAL,
    last_seen_at TEXT
);

CREATE TABLE IF NOT EXISTS drivers (
    id         TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name  TEXT NOT NULL,
    active     INTEGER NOT NULL DEFAULT 1,
    chat_id    INTEGER,
    handle     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS shifts (
    id            TEXT PRIMARY KEY,
    driver_id     TEXT NOT NULL,
    vehicle_id    TEXT NOT NULL,
    started_at    TEXT NOT NULL,
    start_reading INTEGER NOT NULL,
    inspection    TEXT NOT NULL DEFAULT '{}',
    ended_at      TEXT,
    end_reading   INTEGER
);

CREATE TABLE IF NOT EXISTS outbox (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    topic      TEXT NOT NULL,
    payload    BLOB NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// parseTime reads an RFC3339 timestamp column, tolerating empty values.
func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
