package catalog

// Timestamps are stored as unix nanoseconds. Owner-table reference columns are
// declared without a foreign key: the legacy artwork column holds free text,
// and dangling pointers must stay observable as broken references instead of
// being rejected at write time.
const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_user_id INTEGER NOT NULL DEFAULT 0,
	stored_name   TEXT NOT NULL,
	original_name TEXT NOT NULL DEFAULT '',
	display_name  TEXT,
	relative_path TEXT NOT NULL,
	public_url    TEXT NOT NULL DEFAULT '',
	mime_type     TEXT NOT NULL DEFAULT '',
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_relative_path ON assets(relative_path);

CREATE TABLE IF NOT EXISTS artwork_info (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id   INTEGER NOT NULL DEFAULT 0,
	title     TEXT NOT NULL DEFAULT '',
	image_ref TEXT
);

CREATE TABLE IF NOT EXISTS projects (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL DEFAULT '',
	cover_image_id INTEGER
);

CREATE TABLE IF NOT EXISTS cards (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER,
	title      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS card_attachments (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id  INTEGER NOT NULL,
	asset_id INTEGER
);
CREATE INDEX IF NOT EXISTS idx_card_attachments_asset ON card_attachments(asset_id);

CREATE TABLE IF NOT EXISTS edit_leases (
	scope_id          TEXT NOT NULL,
	holder_id         TEXT NOT NULL,
	acquired_at       INTEGER NOT NULL,
	last_heartbeat_at INTEGER NOT NULL,
	ttl_ms            INTEGER NOT NULL,
	PRIMARY KEY (scope_id, holder_id)
) WITHOUT ROWID;
`
