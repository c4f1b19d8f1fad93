package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const personColumns = "id, workspace_id, name, role, created_at, updated_at"

// PersonsTable is the accessor for the persons collection.
type PersonsTable struct {
	backend *Backend
}

// List returns the persons of one workspace ordered by name.
func (pt *PersonsTable) List(ctx context.Context, workspaceID string) ([]types.Person, error) {
	var out []types.Person
	err := pt.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryPersons(ctx, db,
			"SELECT "+personColumns+" FROM persons WHERE workspace_id = ? ORDER BY name, rowid", workspaceID)
		return err
	})
	return out, err
}

// All returns every person regardless of workspace, in insertion order.
func (pt *PersonsTable) All(ctx context.Context) ([]types.Person, error) {
	var out []types.Person
	err := pt.backend.read(func(db *sql.DB) error {
		var err error
		out, err = queryPersons(ctx, db, "SELECT "+personColumns+" FROM persons ORDER BY rowid")
		return err
	})
	return out, err
}

// Get returns the person with id, or an error wrapping ErrNotFound.
func (pt *PersonsTable) Get(ctx context.Context, id string) (types.Person, error) {
	var p types.Person
	err := pt.backend.read(func(db *sql.DB) error {
		var err error
		p, err = getPerson(ctx, db, id)
		return err
	})
	return p, err
}

// Owner returns the workspace a person belongs to. found is false when no
// person has that id.
func (pt *PersonsTable) Owner(ctx context.Context, id string) (workspaceID string, found bool, err error) {
	err = pt.backend.read(func(db *sql.DB) error {
		workspaceID, found, err = owner(ctx, db, types.PersonsTable, id)
		return err
	})
	return workspaceID, found, err
}

// Create inserts a new person. An empty ID is generated; zero timestamps
// are set to now.
func (pt *PersonsTable) Create(ctx context.Context, p types.Person) (types.Person, error) {
	if p.WorkspaceID == "" {
		return types.Person{}, types.ErrNoActiveWorkspace
	}
	name, err := types.NormalizeName(p.Name)
	if err != nil {
		return types.Person{}, err
	}
	p.Name = name
	if p.ID == "" {
		p.ID = pt.backend.NewID()
	}
	now := pt.backend.timestamp()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	err = pt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO persons ("+personColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, nullString(p.WorkspaceID), p.Name, p.Role,
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("inserting person: %w", err)
		}
		return []string{types.PersonsTable}, nil
	})
	if err != nil {
		return types.Person{}, err
	}
	return p, nil
}

// Put inserts p or overwrites the person with the same ID.
func (pt *PersonsTable) Put(ctx context.Context, p types.Person) error {
	return pt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if err := putPerson(ctx, tx, p); err != nil {
			return nil, err
		}
		return []string{types.PersonsTable}, nil
	})
}

// Update applies the non-nil fields of upd and stamps UpdatedAt.
func (pt *PersonsTable) Update(ctx context.Context, id string, upd types.PersonUpdate) (types.Person, error) {
	var p types.Person
	err := pt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		var err error
		p, err = getPerson(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if upd.Name != nil {
			name, err := types.NormalizeName(*upd.Name)
			if err != nil {
				return nil, err
			}
			p.Name = name
		}
		if upd.Role != nil {
			p.Role = *upd.Role
		}
		p.UpdatedAt = pt.backend.timestamp()
		if _, err := tx.ExecContext(ctx,
			"UPDATE persons SET name = ?, role = ?, updated_at = ? WHERE id = ?",
			p.Name, p.Role, formatTime(p.UpdatedAt), id); err != nil {
			return nil, fmt.Errorf("updating person %s: %w", id, err)
		}
		return []string{types.PersonsTable}, nil
	})
	if err != nil {
		return types.Person{}, err
	}
	return p, nil
}

// Delete removes a person and all of its assignments in one transaction.
func (pt *PersonsTable) Delete(ctx context.Context, id string) error {
	return pt.backend.write(ctx, func(tx *sql.Tx) ([]string, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE person_id = ?", id); err != nil {
			return nil, fmt.Errorf("deleting assignments of person %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
		if err != nil {
			return nil, fmt.Errorf("deleting person %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("person %s: %w", id, types.ErrNotFound)
		}
		return []string{types.PersonsTable, types.AssignmentsTable}, nil
	})
}

func putPerson(ctx context.Context, q querier, p types.Person) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO persons (`+personColumns+`) VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET workspace_id = excluded.workspace_id, name = excluded.name,
           role = excluded.role, created_at = excluded.created_at, updated_at = excluded.updated_at`,
		p.ID, nullString(p.WorkspaceID), p.Name, p.Role,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("writing person %s: %w", p.ID, err)
	}
	return nil
}

func getPerson(ctx context.Context, q querier, id string) (types.Person, error) {
	row := q.QueryRowContext(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ?", id)
	p, err := hydratePerson(row)
	if err != nil {
		return types.Person{}, notFound(err, "person", id)
	}
	return p, nil
}

func queryPersons(ctx context.Context, q querier, query string, args ...any) ([]types.Person, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	out := []types.Person{}
	for rows.Next() {
		p, err := hydratePerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persons: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func hydratePerson(row scanner) (types.Person, error) {
	var (
		p                    types.Person
		workspaceID          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &workspaceID, &p.Name, &p.Role, &createdAt, &updatedAt); err != nil {
		return types.Person{}, err
	}
	p.WorkspaceID = workspaceID.String
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Person{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Person{}, err
	}
	return p, nil
}

// owner looks up the workspace_id of a row in table.
func owner(ctx context.Context, q querier, table, id string) (string, bool, error) {
	var ws sql.NullString
	err := q.QueryRowContext(ctx, "SELECT workspace_id FROM "+table+" WHERE id = ?", id).Scan(&ws)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up %s %s: %w", table, id, err)
	}
	return ws.String, true, nil
}
