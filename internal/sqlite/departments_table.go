package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const departmentColumns = "id, workspace_id, name, pos_x, pos_y, width, height, created_at, updated_at"

// DepartmentsTable is the accessor for the departments collection.
type DepartmentsTable struct {
	backend *Backend
}

// List returns the departments of one workspace ordered by name.
func (dt *DepartmentsTable) List(ctx context.Context, workspaceID string) ([]types.Department, error) {
	var out []types.Department
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryDepartments(ctx, db,
			"SELECT "+departmentColumns+" FROM departments WHERE workspace_id = ? ORDER BY name, rowid", workspaceID)
		return err
	})
	return out, err
}

// All returns every department regardless of workspace, in insertion order.
func (dt *DepartmentsTable) All(ctx context.Context) ([]types.Department, error) {
	var out []types.Department
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryDepartments(ctx, db, "SELECT "+departmentColumns+" FROM departments ORDER BY rowid")
		return err
	})
	return out, err
}

// Get returns the department with id, or an error wrapping ErrNotFound.
func (dt *DepartmentsTable) Get(ctx context.Context, id string) (types.Department, error) {
	var d types.Department
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		d, err = getDepartment(ctx, db, id)
		return err
	})
	return d, err
}

// Owner returns the workspace a department belongs to. found is false when
// no department has that id.
func (dt *DepartmentsTable) Owner(ctx context.Context, id string) (workspaceID string, found bool, err error) {
	err = dt.backend.read(func(db *sql.DB) error {
		workspaceID, found, err = owner(ctx, db, types.DepartmentsTable, id)
		return err
	})
	return workspaceID, found, err
}

// Create inserts a new department. An empty ID is generated; zero
// timestamps are set to now; the position is clamped to the canvas.
func (dt *DepartmentsTable) Create(ctx context.Context, d types.Department) (types.Department, error) {
	if d.WorkspaceID == "" {
		return types.Department{}, types.ErrNoActiveWorkspace
	}
	name, err := types.NormalizeName(d.Name)
	if err != nil {
		return types.Department{}, err
	}
	d.Name = name
	d.Position = d.Position.Clamp()
	if d.ID == "" {
		d.ID = dt.backend.NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = dt.backend.timestamp()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}

	err = dt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO departments ("+departmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			d.ID, nullString(d.WorkspaceID), d.Name, d.Position.X, d.Position.Y,
			d.Size.Width, d.Size.Height, formatTime(d.CreatedAt), formatTime(d.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("inserting department: %w", err)
		}
		return []string{types.DepartmentsTable}, nil
	})
	if err != nil {
		return types.Department{}, err
	}
	return d, nil
}

// Put inserts d or overwrites the department with the same ID.
func (dt *DepartmentsTable) Put(ctx context.Context, d types.Department) error {
	return dt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := putDepartment(ctx, tx, d); err != nil {
			return nil, err
		}
		return []string{types.DepartmentsTable}, nil
	})
}

// Update applies the non-nil fields of upd and stamps UpdatedAt.
func (dt *DepartmentsTable) Update(ctx context.Context, id string, upd types.DepartmentUpdate) (types.Department, error) {
	var d types.Department
	err := dt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		var err error
		d, err = getDepartment(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if upd.Name != nil {
			name, err := types.NormalizeName(*upd.Name)
			if err != nil {
				return nil, err
			}
			d.Name = name
		}
		if upd.Position != nil {
			d.Position = upd.Position.Clamp()
		}
		if upd.Size != nil {
			d.Size = *upd.Size
		}
		d.UpdatedAt = dt.backend.timestamp()
		if _, err := tx.ExecContext(ctx,
			`UPDATE departments SET name = ?, pos_x = ?, pos_y = ?, width = ?, height = ?, updated_at = ?
             WHERE id = ?`,
			d.Name, d.Position.X, d.Position.Y, d.Size.Width, d.Size.Height,
			formatTime(d.UpdatedAt), id); err != nil {
			return nil, fmt.Errorf("updating department %s: %w", id, err)
		}
		return []string{types.DepartmentsTable}, nil
	})
	if err != nil {
		return types.Department{}, err
	}
	return d, nil
}

// Move changes only the position of a department.
func (dt *DepartmentsTable) Move(ctx context.Context, id string, to types.Position) (types.Department, error) {
	return dt.Update(ctx, id, types.DepartmentUpdate{Position: &to})
}

// Resize changes only the size of a department.
func (dt *DepartmentsTable) Resize(ctx context.Context, id string, size types.Size) (types.Department, error) {
	return dt.Update(ctx, id, types.DepartmentUpdate{Size: &size})
}

// Delete removes a department and all of its assignments in one
// transaction. The assigned persons are kept.
func (dt *DepartmentsTable) Delete(ctx context.Context, id string) error {
	return dt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE department_id = ?", id); err != nil {
			return nil, fmt.Errorf("deleting assignments of department %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM departments WHERE id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("deleting department %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("department %s: %w", id, types.ErrNotFound)
		}
		return []string{types.DepartmentsTable, types.AssignmentsTable}, nil
	})
}

func putDepartment(ctx context.Context, q querier, d types.Department) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO departments (`+departmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET workspace_id = excluded.workspace_id, name = excluded.name,
           pos_x = excluded.pos_x, pos_y = excluded.pos_y, width = excluded.width,
           height = excluded.height, created_at = excluded.created_at, updated_at = excluded.updated_at`,
		d.ID, nullString(d.WorkspaceID), d.Name, d.Position.X, d.Position.Y,
		d.Size.Width, d.Size.Height, formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("writing department %s: %w", d.ID, err)
	}
	return nil
}

func getDepartment(ctx context.Context, q querier, id string) (types.Department, error) {
	row := q.QueryRowContext(ctx, "SELECT "+departmentColumns+" FROM departments WHERE id = ?", id)
	d, err := hydrateDepartment(row)
	if err != nil {
		return types.Department{}, notFound(err, "department", id)
	}
	return d, nil
}

func queryDepartments(ctx context.Context, q querier, query string, args ...any) ([]types.Department, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	defer rows.Close()

	out := []types.Department{}
	for rows.Next() {
		d, err := hydrateDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}
	return out, nil
}

func hydrateDepartment(row scanner) (types.Department, error) {
	var (
		d                    types.Department
		workspaceID          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &workspaceID, &d.Name, &d.Position.X, &d.Position.Y,
		&d.Size.Width, &d.Size.Height, &createdAt, &updatedAt); err != nil {
		return types.Department{}, err
	}
	d.WorkspaceID = workspaceID.String
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Department{}, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Department{}, err
	}
	return d, nil
}
