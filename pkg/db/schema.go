package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the local schema.
	// The kv table is the local fallback persistence: one row per key, each
	// holding an opaque (JSON) value, mirroring browser local storage.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS wayfarer_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at REAL DEFAULT (unixepoch())
);
`
)
