package store

import "database/sql"

// Schema is the complete schema. Items are unique per context on their
// canonical key; changes and events are append-only.
const Schema = `
-- Content owners
CREATE TABLE IF NOT EXISTS contexts (
    id         TEXT PRIMARY KEY,
    slug       TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

-- Pages monitored per context
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    context_id      TEXT NOT NULL REFERENCES contexts(id) ON DELETE CASCADE,
    name            TEXT NOT NULL DEFAULT '',
    url             TEXT NOT NULL,
    enabled         INTEGER NOT NULL DEFAULT 1,
    last_fetched_at INTEGER,
    last_hash       TEXT NOT NULL DEFAULT '',
    last_status     TEXT NOT NULL DEFAULT 'pending',
    last_error      TEXT NOT NULL DEFAULT '',
    fail_count      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_context_url ON sources(context_id, url);

-- Canonical Q&A items
CREATE TABLE IF NOT EXISTS items (
    id            TEXT PRIMARY KEY,
    context_id    TEXT NOT NULL REFERENCES contexts(id) ON DELETE CASCADE,
    source_id     TEXT NOT NULL DEFAULT '',
    question      TEXT NOT NULL,
    answer        TEXT NOT NULL,
    canonical_key TEXT NOT NULL,
    published     INTEGER NOT NULL DEFAULT 1,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,
    UNIQUE(context_id, canonical_key)
);
CREATE INDEX IF NOT EXISTS idx_items_context ON items(context_id, published);

-- Append-only change log; the latest record per item is its badge
CREATE TABLE IF NOT EXISTS changes (
    id            TEXT PRIMARY KEY,
    item_id       TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    change_type   TEXT NOT NULL,
    before_answer TEXT NOT NULL DEFAULT '',
    after_answer  TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_item ON changes(item_id, created_at DESC);

-- Client interaction events (search, click)
CREATE TABLE IF NOT EXISTS events (
    id         TEXT PRIMARY KEY,
    context_id TEXT NOT NULL REFERENCES contexts(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    query      TEXT NOT NULL DEFAULT '',
    item_id    TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_context ON events(context_id, created_at DESC);

-- Fetch log (observability)
CREATE TABLE IF NOT EXISTS fetch_log (
    id            TEXT PRIMARY KEY,
    source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    status_code   INTEGER,
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_log_source ON fetch_log(source_id, fetched_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
