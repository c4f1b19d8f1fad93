package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Snapshot is a point-in-time copy of the store's records.
type Snapshot struct {
	Persons     []types.Person
	Departments []types.Department
	Assignments []types.Assignment
	Workspaces  []types.Workspace
}

// Snapshot reads the records of one workspace, or of every workspace when
// workspaceID is empty. Writers are held off for the duration so the four
// collections are mutually consistent.
func (b *Backend) Snapshot(ctx context.Context, workspaceID string) (Snapshot, error) {
	var s Snapshot
	err := b.read(func(db *sql.DB) error {
		var err error
		if workspaceID == "" {
			if s.Persons, err = queryPersons(ctx, db,
				"SELECT "+personColumns+" FROM persons ORDER BY rowid"); err != nil {
				return err
			}
			if s.Departments, err = queryDepartments(ctx, db,
				"SELECT "+departmentColumns+" FROM departments ORDER BY rowid"); err != nil {
				return err
			}
			if s.Assignments, err = queryAssignments(ctx, db,
				"SELECT "+assignmentColumns+" FROM assignments ORDER BY rowid"); err != nil {
				return err
			}
			s.Workspaces, err = queryWorkspaces(ctx, db,
				"SELECT "+workspaceColumns+" FROM workspaces ORDER BY created_at, rowid")
			return err
		}

		if s.Persons, err = queryPersons(ctx, db,
			"SELECT "+personColumns+" FROM persons WHERE workspace_id = ? ORDER BY rowid", workspaceID); err != nil {
			return err
		}
		if s.Departments, err = queryDepartments(ctx, db,
			"SELECT "+departmentColumns+" FROM departments WHERE workspace_id = ? ORDER BY rowid", workspaceID); err != nil {
			return err
		}
		if s.Assignments, err = queryAssignments(ctx, db,
			"SELECT "+assignmentColumns+" FROM assignments WHERE workspace_id = ? ORDER BY rowid", workspaceID); err != nil {
			return err
		}
		s.Workspaces, err = queryWorkspaces(ctx, db,
			"SELECT "+workspaceColumns+" FROM workspaces WHERE id = ?", workspaceID)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("taking snapshot: %w", err)
	}
	return s, nil
}

// ClearAll removes every person, department and assignment in the store.
// Workspaces are kept.
func (b *Backend) ClearAll(ctx context.Context) error {
	return b.write(ctx, func(tx *sql.Tx) ([]string, error) {
		for _, table := range []string{types.AssignmentsTable, types.PersonsTable, types.DepartmentsTable} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return nil, fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return []string{types.PersonsTable, types.DepartmentsTable, types.AssignmentsTable}, nil
	})
}
