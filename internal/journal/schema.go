// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package journal

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per training submission; chat messages are never stored.
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    submitted_at INTEGER NOT NULL,  -- Unix milliseconds
    example_count INTEGER NOT NULL,
    outcome TEXT NOT NULL,          -- accepted | failed
    status TEXT NOT NULL,           -- status line shown to the user
    output_dir TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
