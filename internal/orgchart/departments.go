package orgchart

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// ListDepartments returns the departments of the active workspace. Without
// an active workspace the list is empty.
func (s *Service) ListDepartments(ctx context.Context) ([]types.Department, error) {
	ws := s.ActiveWorkspaceID()
	if ws == "" {
		return []types.Department{}, nil
	}
	return s.store.Departments().List(ctx, ws)
}

// ListDepartmentsWithPeople returns the departments of the active workspace
// with their people in display order.
func (s *Service) ListDepartmentsWithPeople(ctx context.Context) ([]types.DepartmentWithPeople, error) {
	departments, err := s.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.DepartmentWithPeople, 0, len(departments))
	for _, d := range departments {
		people, err := s.store.Assignments().PeopleInDepartment(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, types.DepartmentWithPeople{Department: d, People: people, PersonCount: len(people)})
	}
	return out, nil
}

// GetDepartment returns a department of the active workspace.
func (s *Service) GetDepartment(ctx context.Context, id string) (types.Department, error) {
	if _, err := s.inScope(ctx, "department", id, s.store.Departments().Owner); err != nil {
		return types.Department{}, err
	}
	return s.store.Departments().Get(ctx, id)
}

// CreateDepartment adds a department to the active workspace. A blank name
// selects the default name and a nil position the default position; the
// size is always the default.
func (s *Service) CreateDepartment(ctx context.Context, name string, at *types.Position) (types.Department, error) {
	ws, err := s.scope()
	if err != nil {
		return types.Department{}, err
	}
	if strings.TrimSpace(name) == "" {
		name = types.DefaultDepartmentName
	}
	pos := types.Position{X: types.DefaultDepartmentX, Y: types.DefaultDepartmentY}
	if at != nil {
		pos = *at
	}
	return s.store.Departments().Create(ctx, types.Department{
		WorkspaceID: ws,
		Name:        name,
		Position:    pos,
		Size:        types.Size{Width: types.DefaultDepartmentWidth, Height: types.DefaultDepartmentHeight},
	})
}

// UpdateDepartment applies a partial update and stamps the update time.
func (s *Service) UpdateDepartment(ctx context.Context, id string, upd types.DepartmentUpdate) (types.Department, error) {
	if _, err := s.inScope(ctx, "department", id, s.store.Departments().Owner); err != nil {
		return types.Department{}, err
	}
	return s.store.Departments().Update(ctx, id, upd)
}

// RenameDepartment changes only the name.
func (s *Service) RenameDepartment(ctx context.Context, id, name string) (types.Department, error) {
	return s.UpdateDepartment(ctx, id, types.DepartmentUpdate{Name: &name})
}

// MoveDepartment changes only the position, clamped to the canvas.
func (s *Service) MoveDepartment(ctx context.Context, id string, x, y float64) (types.Department, error) {
	if _, err := s.inScope(ctx, "department", id, s.store.Departments().Owner); err != nil {
		return types.Department{}, err
	}
	return s.store.Departments().Move(ctx, id, types.Position{X: x, Y: y})
}

// ResizeDepartment changes only the size.
func (s *Service) ResizeDepartment(ctx context.Context, id string, width, height float64) (types.Department, error) {
	if _, err := s.inScope(ctx, "department", id, s.store.Departments().Owner); err != nil {
		return types.Department{}, err
	}
	return s.store.Departments().Resize(ctx, id, types.Size{Width: width, Height: height})
}

// DeleteDepartment removes a department and its assignments. The people
// stay in the workspace.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if _, err := s.inScope(ctx, "department", id, s.store.Departments().Owner); err != nil {
		return err
	}
	return s.store.Departments().Delete(ctx, id)
}
