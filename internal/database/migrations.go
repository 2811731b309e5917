package database

// Migration represents a database migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: "001_backup_operations",
		Up: `
-- Audit trail of backup engine operations. The backup directory itself
-- is the authority on which archives exist; this table only records
-- what was done and whether it succeeded.
CREATE TABLE backup_operations (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL,
    operation TEXT NOT NULL,
    archive TEXT,
    detail TEXT,
    success BOOLEAN NOT NULL DEFAULT 1,
    error_message TEXT
);

CREATE INDEX idx_backup_operations_timestamp ON backup_operations(timestamp);
CREATE INDEX idx_backup_operations_operation ON backup_operations(operation);
`,
		Down: `
DROP TABLE backup_operations;
`,
	},
}
