package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const assignmentColumns = "id, workspace_id, person_id, department_id, sort_order, created_at"

// AssignmentsTable is the accessor for the assignments collection. At most
// one assignment exists per (person, department) pair; the check happens
// here, inside the writing transaction, not in the schema.
type AssignmentsTable struct {
	backend *Backend
}

// Get returns the assignment with id, or an error wrapping ErrNotFound.
func (at *AssignmentsTable) Get(ctx context.Context, id string) (types.Assignment, error) {
	var a types.Assignment
	err := at.backend.read(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE id = ?", id)
		var err error
		a, err = hydrateAssignment(row)
		if err != nil {
			return notFound(err, "assignment", id)
		}
		return nil
	})
	return a, err
}

// Owner returns the workspace an assignment belongs to. found is false when
// no assignment has that id.
func (at *AssignmentsTable) Owner(ctx context.Context, id string) (workspaceID string, found bool, err error) {
	err = at.backend.read(func(db *sql.DB) error {
		workspaceID, found, err = owner(ctx, db, types.AssignmentsTable, id)
		return err
	})
	return workspaceID, found, err
}

// Find returns the assignment linking a person to a department. found is
// false when the pair is not assigned.
func (at *AssignmentsTable) Find(ctx context.Context, personID, departmentID string) (a types.Assignment, found bool, err error) {
	err = at.backend.read(func(db *sql.DB) error {
		a, found, err = findAssignment(ctx, db, personID, departmentID)
		return err
	})
	return a, found, err
}

// Assign links a person to a department at the end of its display order.
// If the pair is already assigned the existing record is returned and
// created is false.
func (at *AssignmentsTable) Assign(ctx context.Context, workspaceID, personID, departmentID string) (a types.Assignment, created bool, err error) {
	err = at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		existing, found, err := findAssignment(ctx, tx, personID, departmentID)
		if err != nil {
			return nil, err
		}
		if found {
			a = existing
			return nil, nil
		}
		a = types.Assignment{
			ID:           at.backend.NewID(),
			WorkspaceID:  workspaceID,
			PersonID:     personID,
			DepartmentID: departmentID,
			CreatedAt:    at.backend.timestamp(),
		}
		if a.Order, err = nextOrder(ctx, tx, departmentID); err != nil {
			return nil, err
		}
		if err := putAssignment(ctx, tx, a); err != nil {
			return nil, err
		}
		created = true
		return []string{types.AssignmentsTable}, nil
	})
	return a, created, err
}

// Append writes a at the end of its department's display order, ignoring
// a.Order. Used for records that carry no order of their own.
func (at *AssignmentsTable) Append(ctx context.Context, a types.Assignment) (types.Assignment, error) {
	err := at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		var err error
		if a.Order, err = nextOrder(ctx, tx, a.DepartmentID); err != nil {
			return nil, err
		}
		if err := putAssignment(ctx, tx, a); err != nil {
			return nil, err
		}
		return []string{types.AssignmentsTable}, nil
	})
	return a, err
}

// Put inserts a or overwrites the assignment with the same ID.
func (at *AssignmentsTable) Put(ctx context.Context, a types.Assignment) error {
	return at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := putAssignment(ctx, tx, a); err != nil {
			return nil, err
		}
		return []string{types.AssignmentsTable}, nil
	})
}

// Unassign removes the link between a person and a department. Removing a
// pair that is not assigned is not an error.
func (at *AssignmentsTable) Unassign(ctx context.Context, personID, departmentID string) error {
	return at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM assignments WHERE person_id = ? AND department_id = ?", personID, departmentID)
		if err != nil {
			return nil, fmt.Errorf("unassigning person %s from department %s: %w", personID, departmentID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, nil
		}
		return []string{types.AssignmentsTable}, nil
	})
}

// UnassignAll removes every assignment of a person and returns how many
// were removed.
func (at *AssignmentsTable) UnassignAll(ctx context.Context, personID string) (int, error) {
	var removed int64
	err := at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		res, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE person_id = ?", personID)
		if err != nil {
			return nil, fmt.Errorf("unassigning person %s: %w", personID, err)
		}
		removed, _ = res.RowsAffected()
		if removed == 0 {
			return nil, nil
		}
		return []string{types.AssignmentsTable}, nil
	})
	return int(removed), err
}

// Reorder sets the display order of a department to the given sequence of
// persons: each person's order becomes its index. Every person must already
// be assigned to the department; otherwise nothing changes and the error
// wraps ErrAssignmentNotFound.
func (at *AssignmentsTable) Reorder(ctx context.Context, departmentID string, orderedPersonIDs []string) error {
	return at.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		for i, personID := range orderedPersonIDs {
			res, err := tx.ExecContext(ctx,
				"UPDATE assignments SET sort_order = ? WHERE person_id = ? AND department_id = ?",
				i, personID, departmentID)
			if err != nil {
				return nil, fmt.Errorf("reordering department %s: %w", departmentID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil, fmt.Errorf("person %s in department %s: %w", personID, departmentID, types.ErrAssignmentNotFound)
			}
		}
		return []string{types.AssignmentsTable}, nil
	})
}

// ListByDepartment returns the assignments of a department in display order.
func (at *AssignmentsTable) ListByDepartment(ctx context.Context, departmentID string) ([]types.Assignment, error) {
	return at.list(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE department_id = ? ORDER BY sort_order, rowid", departmentID)
}

// ListByPerson returns the assignments of a person.
func (at *AssignmentsTable) ListByPerson(ctx context.Context, personID string) ([]types.Assignment, error) {
	return at.list(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE person_id = ? ORDER BY rowid", personID)
}

// ListByWorkspace returns the assignments of a workspace.
func (at *AssignmentsTable) ListByWorkspace(ctx context.Context, workspaceID string) ([]types.Assignment, error) {
	return at.list(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE workspace_id = ? ORDER BY department_id, sort_order, rowid", workspaceID)
}

// All returns every assignment regardless of workspace, in insertion order.
func (at *AssignmentsTable) All(ctx context.Context) ([]types.Assignment, error) {
	return at.list(ctx, "SELECT "+assignmentColumns+" FROM assignments ORDER BY rowid")
}

// CountByDepartment returns how many persons are assigned to a department.
func (at *AssignmentsTable) CountByDepartment(ctx context.Context, departmentID string) (int, error) {
	var n int
	err := at.backend.read(func(db *sql.DB) error {
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assignments WHERE department_id = ?", departmentID).Scan(&n); err != nil {
			return fmt.Errorf("counting assignments of department %s: %w", departmentID, err)
		}
		return nil
	})
	return n, err
}

// PeopleInDepartment returns the persons assigned to a department, ordered by
// their display order.
func (at *AssignmentsTable) PeopleInDepartment(ctx context.Context, departmentID string) ([]types.Person, error) {
	var out []types.Person
	err := at.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryPersons(ctx, db,
			`SELECT p.id, p.workspace_id, p.name, p.role, p.created_at, p.updated_at
             FROM assignments a JOIN persons p ON p.id = a.person_id
             WHERE a.department_id = ?
             ORDER BY a.sort_order, a.rowid`, departmentID)
		return err
	})
	return out, err
}

func (at *AssignmentsTable) list(ctx context.Context, query string, args ...any) ([]types.Assignment, error) {
	var out []types.Assignment
	err := at.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryAssignments(ctx, db, query, args...)
		return err
	})
	return out, err
}

func findAssignment(ctx context.Context, q querier, personID, departmentID string) (types.Assignment, bool, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE person_id = ? AND department_id = ? LIMIT 1",
		personID, departmentID)
	a, err := hydrateAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Assignment{}, false, nil
	}
	if err != nil {
		return types.Assignment{}, false, fmt.Errorf("finding assignment: %w", err)
	}
	return a, true, nil
}

// nextOrder is one past the highest order in a department, or 0 when the
// department is empty.
func nextOrder(ctx context.Context, q querier, departmentID string) (int, error) {
	var highest sql.NullInt64
	if err := q.QueryRowContext(ctx,
		"SELECT MAX(sort_order) FROM assignments WHERE department_id = ?", departmentID).Scan(&highest); err != nil {
		return 0, fmt.Errorf("reading max order of department %s: %w", departmentID, err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64) + 1, nil
}

func putAssignment(ctx context.Context, q querier, a types.Assignment) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET workspace_id = excluded.workspace_id, person_id = excluded.person_id,
           department_id = excluded.department_id, sort_order = excluded.sort_order,
           created_at = excluded.created_at`,
		a.ID, nullString(a.WorkspaceID), a.PersonID, a.DepartmentID, a.Order, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("writing assignment %s: %w", a.ID, err)
	}
	return nil
}

func queryAssignments(ctx context.Context, q querier, query string, args ...any) ([]types.Assignment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	out := []types.Assignment{}
	for rows.Next() {
		a, err := hydrateAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return out, nil
}

func hydrateAssignment(row scanner) (types.Assignment, error) {
	var (
		a           types.Assignment
		workspaceID sql.NullString
		order       sql.NullInt64
		createdAt   string
	)
	if err := row.Scan(&a.ID, &workspaceID, &a.PersonID, &a.DepartmentID, &order, &createdAt); err != nil {
		return types.Assignment{}, err
	}
	a.WorkspaceID = workspaceID.String
	a.Order = int(order.Int64)
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Assignment{}, err
	}
	return a, nil
}
