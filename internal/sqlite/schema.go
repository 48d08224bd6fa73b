package sqlite

// Schema DDL. Tables persist across attaches, so every statement is
// idempotent.
const (
	createScans = `CREATE TABLE IF NOT EXISTS scans (
    scan_id TEXT PRIMARY KEY,
    scanned_at TEXT NOT NULL,
    count INTEGER NOT NULL,
    source TEXT NOT NULL DEFAULT ''
);`

	createDescriptors = `CREATE TABLE IF NOT EXISTS descriptors (
    scan_id TEXT NOT NULL,
    guid TEXT NOT NULL,
    field_name TEXT NOT NULL,
    display_name TEXT NOT NULL,
    category TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type_full_name TEXT NOT NULL,
    type_qualified_name TEXT NOT NULL,
    type_module TEXT NOT NULL,
    show_in_ui INTEGER NOT NULL,
    PRIMARY KEY (scan_id, guid),
    FOREIGN KEY (scan_id) REFERENCES scans(scan_id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxScansScannedAt        = `CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at);`
	idxDescriptorsCategory   = `CREATE INDEX IF NOT EXISTS idx_descriptors_category ON descriptors(scan_id, category);`
	idxDescriptorsTypeModule = `CREATE INDEX IF NOT EXISTS idx_descriptors_type_module ON descriptors(type_module);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createScans,
	createDescriptors,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxScansScannedAt,
	idxDescriptorsCategory,
	idxDescriptorsTypeModule,
}

// descriptorColumns is the column order used by inserts and selects.
var descriptorColumns = []string{
	"scan_id",
	"guid",
	"field_name",
	"display_name",
	"category",
	"description",
	"type_full_name",
	"type_qualified_name",
	"type_module",
	"show_in_ui",
}
