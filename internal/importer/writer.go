package importer

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/organigrama/internal/backup"
	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

type ownerFunc func(ctx context.Context, id string) (string, bool, error)

// writer copies one document's records into a single workspace, one record
// per transaction, and tallies the outcome in summary.
type writer struct {
	store     *sqlite.Backend
	workspace string
	// fresh marks a workspace created by this import: every id is new.
	fresh bool
	mode  Mode
	// anyWorkspace keeps ids that exist in other workspaces instead of
	// regenerating them.
	anyWorkspace bool
	where        string
	remap        map[string]string
	summary      *Summary
}

func (w *writer) write(ctx context.Context, persons []types.Person, departments []types.Department, assignments []backup.Assignment) {
	for _, p := range persons {
		w.person(ctx, p)
	}
	for _, d := range departments {
		w.department(ctx, d)
	}
	for _, a := range assignments {
		w.assignment(ctx, a)
	}
}

func (w *writer) person(ctx context.Context, p types.Person) {
	id, skip, err := w.resolve(ctx, p.ID, w.store.Persons().Owner)
	if err != nil {
		w.fail("Failed to import person %s%s: %v", p.ID, w.where, err)
		return
	}
	w.remap[p.ID] = id
	if skip {
		w.summary.Skipped++
		return
	}
	p.ID, p.WorkspaceID = id, w.workspace
	if err := w.store.Persons().Put(ctx, p); err != nil {
		w.fail("Failed to import person %s%s: %v", p.ID, w.where, err)
		return
	}
	w.summary.PersonsImported++
}

func (w *writer) department(ctx context.Context, d types.Department) {
	id, skip, err := w.resolve(ctx, d.ID, w.store.Departments().Owner)
	if err != nil {
		w.fail("Failed to import department %s%s: %v", d.ID, w.where, err)
		return
	}
	w.remap[d.ID] = id
	if skip {
		w.summary.Skipped++
		return
	}
	d.ID, d.WorkspaceID = id, w.workspace
	if err := w.store.Departments().Put(ctx, d); err != nil {
		w.fail("Failed to import department %s%s: %v", d.ID, w.where, err)
		return
	}
	w.summary.DepartmentsImported++
}

// assignment writes a after rewriting its endpoints through remap. Both
// endpoints must be in the workspace, or merely exist when anyWorkspace is
// set; an already linked pair is skipped. Records without an order go to
// the end of their department.
func (w *writer) assignment(ctx context.Context, a backup.Assignment) {
	personID, departmentID := w.mapped(a.PersonID), w.mapped(a.DepartmentID)
	workspace, ok, err := w.endpointsPresent(ctx, personID, departmentID)
	if err != nil {
		w.fail("Failed to import assignment %s%s: %v", a.ID, w.where, err)
		return
	}
	if !ok {
		w.fail("Skipping assignment %s%s: person or department not found", a.ID, w.where)
		return
	}
	if _, linked, err := w.store.Assignments().Find(ctx, personID, departmentID); err != nil {
		w.fail("Failed to import assignment %s%s: %v", a.ID, w.where, err)
		return
	} else if linked {
		w.summary.Skipped++
		return
	}

	id, skip, err := w.resolve(ctx, a.ID, w.store.Assignments().Owner)
	if err != nil {
		w.fail("Failed to import assignment %s%s: %v", a.ID, w.where, err)
		return
	}
	if skip {
		w.summary.Skipped++
		return
	}
	rec := types.Assignment{
		ID:           id,
		WorkspaceID:  workspace,
		PersonID:     personID,
		DepartmentID: departmentID,
		CreatedAt:    a.CreatedAt,
	}
	if a.Order == nil {
		_, err = w.store.Assignments().Append(ctx, rec)
	} else {
		rec.Order = *a.Order
		err = w.store.Assignments().Put(ctx, rec)
	}
	if err != nil {
		w.fail("Failed to import assignment %s%s: %v", a.ID, w.where, err)
		return
	}
	w.summary.AssignmentsImported++
}

// resolve picks the id a record is written under. skip is true in merge
// mode when a record with the id already exists where it would be written.
func (w *writer) resolve(ctx context.Context, id string, ownerOf ownerFunc) (newID string, skip bool, err error) {
	if w.fresh {
		return w.store.NewID(), false, nil
	}
	owner, found, err := ownerOf(ctx, id)
	if err != nil {
		return "", false, err
	}
	switch {
	case !found:
		return id, false, nil
	case owner != w.workspace && !w.anyWorkspace:
		return w.store.NewID(), false, nil
	case w.mode == ModeMerge:
		return id, true, nil
	default:
		return id, false, nil
	}
}

func (w *writer) mapped(id string) string {
	if to, ok := w.remap[id]; ok {
		return to
	}
	return id
}

// endpointsPresent reports whether both endpoints exist and returns the
// workspace the assignment belongs to: the person's when anyWorkspace is
// set, otherwise the writer's own.
func (w *writer) endpointsPresent(ctx context.Context, personID, departmentID string) (string, bool, error) {
	personOwner, found, err := w.store.Persons().Owner(ctx, personID)
	if err != nil || !found {
		return "", false, err
	}
	departmentOwner, found, err := w.store.Departments().Owner(ctx, departmentID)
	if err != nil || !found {
		return "", false, err
	}
	if w.anyWorkspace {
		return personOwner, true, nil
	}
	if personOwner != w.workspace || departmentOwner != w.workspace {
		return "", false, nil
	}
	return w.workspace, true, nil
}

func (w *writer) fail(format string, args ...any) {
	w.summary.Errors = append(w.summary.Errors, fmt.Sprintf(format, args...))
}
