package sqlite

// Schema DDL per version. Each version is applied on top of the previous one;
// a fresh database walks the whole list.
const (
	createMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);`

	createPersonsV1 = `CREATE TABLE persons (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createDepartmentsV1 = `CREATE TABLE departments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    pos_x REAL NOT NULL,
    pos_y REAL NOT NULL,
    width REAL NOT NULL,
    height REAL NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createAssignmentsV1 = `CREATE TABLE assignments (
    id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL,
    department_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createWorkspacesV3 = `CREATE TABLE workspaces (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

var indexesV1 = []string{
	"CREATE INDEX idx_persons_name ON persons(name)",
	"CREATE INDEX idx_departments_name ON departments(name)",
	"CREATE INDEX idx_assignments_person_department ON assignments(person_id, department_id)",
	"CREATE INDEX idx_assignments_person ON assignments(person_id)",
	"CREATE INDEX idx_assignments_department ON assignments(department_id)",
}

var upgradeV2 = []string{
	"ALTER TABLE assignments ADD COLUMN sort_order INTEGER",
	// Rows without an order take their position in insertion order.
	`UPDATE assignments SET sort_order = (
        SELECT COUNT(*) FROM assignments AS a2 WHERE a2.rowid < assignments.rowid
    ) WHERE sort_order IS NULL`,
	"CREATE INDEX idx_assignments_department_order ON assignments(department_id, sort_order)",
}

var upgradeV3 = []string{
	createWorkspacesV3,
	"CREATE INDEX idx_workspaces_created ON workspaces(created_at)",
	"ALTER TABLE persons ADD COLUMN workspace_id TEXT",
	"ALTER TABLE departments ADD COLUMN workspace_id TEXT",
	"ALTER TABLE assignments ADD COLUMN workspace_id TEXT",
	"CREATE INDEX idx_persons_workspace_name ON persons(workspace_id, name)",
	"CREATE INDEX idx_departments_workspace_name ON departments(workspace_id, name)",
	"CREATE INDEX idx_assignments_workspace_department ON assignments(workspace_id, department_id)",
}
