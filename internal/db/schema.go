package db

import (
	"database/sql"
	"fmt"
)

// Schema defines the DuckDB table schema
const Schema = `
-- One row per pushed tree
CREATE TABLE IF NOT EXISTS snapshots (
    id VARCHAR PRIMARY KEY,
    root_path VARCHAR NOT NULL,
    head_hash VARCHAR,
    node_count INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

-- Every file and folder of a snapshot
CREATE TABLE IF NOT EXISTS nodes (
    id VARCHAR PRIMARY KEY,
    snapshot_id VARCHAR NOT NULL REFERENCES snapshots(id),
    path VARCHAR NOT NULL,
    name VARCHAR NOT NULL,
    kind VARCHAR NOT NULL,
    parent_path VARCHAR,
    depth INTEGER NOT NULL,
    position INTEGER NOT NULL,
    summary VARCHAR,
    embedding DOUBLE[],
    UNIQUE(snapshot_id, path)
);

CREATE INDEX IF NOT EXISTS idx_nodes_snapshot ON nodes(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_root ON snapshots(root_path);
`

// CreateSchema creates the tables if they do not exist
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
