package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const workspaceColumns = "id, name, description, is_default, created_at, updated_at"

// WorkspacesTable is the accessor for the workspaces collection.
type WorkspacesTable struct {
	backend *Backend
}

// List returns all workspaces ordered by creation time.
func (wt *WorkspacesTable) List(ctx context.Context) ([]types.Workspace, error) {
	var out []types.Workspace
	err := wt.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryWorkspaces(ctx, db,
			"SELECT "+workspaceColumns+" FROM workspaces ORDER BY created_at, rowid")
		return err
	})
	return out, err
}

// First returns the oldest workspace. found is false when there are none.
func (wt *WorkspacesTable) First(ctx context.Context) (ws types.Workspace, found bool, err error) {
	err = wt.backend.read(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			"SELECT "+workspaceColumns+" FROM workspaces ORDER BY created_at, rowid LIMIT 1")
		ws, err = hydrateWorkspace(row)
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading first workspace: %w", err)
		}
		found = true
		return nil
	})
	return ws, found, err
}

// Get returns the workspace with id, or an error wrapping ErrNotFound.
func (wt *WorkspacesTable) Get(ctx context.Context, id string) (types.Workspace, error) {
	var ws types.Workspace
	err := wt.backend.read(func(db *sql.DB) error {
		var err error
		ws, err = getWorkspace(ctx, db, id)
		return err
	})
	return ws, err
}

// Create inserts a new workspace. The name is trimmed and must not be
// empty. An empty ID is generated; zero timestamps are set to now.
func (wt *WorkspacesTable) Create(ctx context.Context, ws types.Workspace) (types.Workspace, error) {
	ws, err := wt.prepare(ws)
	if err != nil {
		return types.Workspace{}, err
	}
	err = wt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := insertWorkspace(ctx, tx, ws); err != nil {
			return nil, err
		}
		return []string{types.WorkspacesTable}, nil
	})
	if err != nil {
		return types.Workspace{}, err
	}
	return ws, nil
}

// CreateIfAbsent inserts ws unless a workspace with its ID exists. created
// reports whether a row was written.
func (wt *WorkspacesTable) CreateIfAbsent(ctx context.Context, ws types.Workspace) (created bool, err error) {
	ws, err = wt.prepare(ws)
	if err != nil {
		return false, err
	}
	err = wt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if _, err := getWorkspace(ctx, tx, ws.ID); err == nil {
			return nil, nil
		} else if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		if err := insertWorkspace(ctx, tx, ws); err != nil {
			return nil, err
		}
		created = true
		return []string{types.WorkspacesTable}, nil
	})
	return created, err
}

// Update applies the non-nil fields of upd and stamps UpdatedAt.
func (wt *WorkspacesTable) Update(ctx context.Context, id string, upd types.WorkspaceUpdate) (types.Workspace, error) {
	var ws types.Workspace
	err := wt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		var err error
		ws, err = getWorkspace(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if upd.Name != nil {
			name, err := types.NormalizeName(*upd.Name)
			if err != nil {
				return nil, err
			}
			ws.Name = name
		}
		if upd.Description != nil {
			ws.Description = *upd.Description
		}
		ws.UpdatedAt = wt.backend.timestamp()
		if _, err := tx.ExecContext(ctx,
			"UPDATE workspaces SET name = ?, description = ?, updated_at = ? WHERE id = ?",
			ws.Name, ws.Description, formatTime(ws.UpdatedAt), id); err != nil {
			return nil, fmt.Errorf("updating workspace %s: %w", id, err)
		}
		return []string{types.WorkspacesTable}, nil
	})
	if err != nil {
		return types.Workspace{}, err
	}
	return ws, nil
}

// Delete removes a workspace together with all of its persons, departments
// and assignments in one transaction. Guarding the active workspace is the
// caller's job.
func (wt *WorkspacesTable) Delete(ctx context.Context, id string) error {
	return wt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := clearWorkspace(ctx, tx, id); err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("deleting workspace %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("workspace %s: %w", id, types.ErrNotFound)
		}
		return []string{types.WorkspacesTable, types.PersonsTable, types.DepartmentsTable, types.AssignmentsTable}, nil
	})
}

// Clear removes the persons, departments and assignments of a workspace
// but keeps the workspace itself.
func (wt *WorkspacesTable) Clear(ctx context.Context, id string) error {
	return wt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := clearWorkspace(ctx, tx, id); err != nil {
			return nil, err
		}
		return []string{types.PersonsTable, types.DepartmentsTable, types.AssignmentsTable}, nil
	})
}

func (wt *WorkspacesTable) prepare(ws types.Workspace) (types.Workspace, error) {
	name, err := types.NormalizeName(ws.Name)
	if err != nil {
		return types.Workspace{}, err
	}
	ws.Name = name
	if ws.ID == "" {
		ws.ID = wt.backend.NewID()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = wt.backend.timestamp()
	}
	if ws.UpdatedAt.IsZero() {
		ws.UpdatedAt = ws.CreatedAt
	}
	return ws, nil
}

func clearWorkspace(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{types.AssignmentsTable, types.PersonsTable, types.DepartmentsTable} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE workspace_id = ?", id); err != nil {
			return fmt.Errorf("clearing %s of workspace %s: %w", table, id, err)
		}
	}
	return nil
}

func insertWorkspace(ctx context.Context, q querier, ws types.Workspace) error {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO workspaces ("+workspaceColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		ws.ID, ws.Name, ws.Description, ws.IsDefault,
		formatTime(ws.CreatedAt), formatTime(ws.UpdatedAt)); err != nil {
		return fmt.Errorf("inserting workspace: %w", err)
	}
	return nil
}

func getWorkspace(ctx context.Context, q querier, id string) (types.Workspace, error) {
	row := q.QueryRowContext(ctx, "SELECT "+workspaceColumns+" FROM workspaces WHERE id = ?", id)
	ws, err := hydrateWorkspace(row)
	if err != nil {
		return types.Workspace{}, notFound(err, "workspace", id)
	}
	return ws, nil
}

func queryWorkspaces(ctx context.Context, q querier, query string, args ...any) ([]types.Workspace, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer rows.Close()

	out := []types.Workspace{}
	for rows.Next() {
		ws, err := hydrateWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return out, nil
}

func hydrateWorkspace(row scanner) (types.Workspace, error) {
	var (
		ws                   types.Workspace
		description          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&ws.ID, &ws.Name, &description, &ws.IsDefault, &createdAt, &updatedAt); err != nil {
		return types.Workspace{}, err
	}
	ws.Description = description.String
	var err error
	if ws.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Workspace{}, err
	}
	if ws.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Workspace{}, err
	}
	return ws, nil
}
