package types

// Collection names. Change notifications are keyed by these.
const (
	PersonsTable     = "persons"
	DepartmentsTable = "departments"
	AssignmentsTable = "assignments"
	WorkspacesTable  = "workspaces"
)

// StandardTableNames lists all collections for enumeration.
var StandardTableNames = []string{
	PersonsTable,
	DepartmentsTable,
	AssignmentsTable,
	WorkspacesTable,
}
