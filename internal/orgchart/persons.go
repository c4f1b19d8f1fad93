package orgchart

import (
	"context"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// ListPersons returns the persons of the active workspace. Without an
// active workspace the list is empty.
func (s *Service) ListPersons(ctx context.Context) ([]types.Person, error) {
	ws := s.ActiveWorkspaceID()
	if ws == "" {
		return []types.Person{}, nil
	}
	return s.store.Persons().List(ctx, ws)
}

// ListPersonsWithDepartments returns the persons of the active workspace,
// each with the ids of the departments it is assigned to.
func (s *Service) ListPersonsWithDepartments(ctx context.Context) ([]types.PersonWithDepartments, error) {
	ws := s.ActiveWorkspaceID()
	if ws == "" {
		return []types.PersonWithDepartments{}, nil
	}
	persons, err := s.store.Persons().List(ctx, ws)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.Assignments().ListByWorkspace(ctx, ws)
	if err != nil {
		return nil, err
	}

	byPerson := make(map[string][]string)
	for _, a := range assignments {
		byPerson[a.PersonID] = append(byPerson[a.PersonID], a.DepartmentID)
	}
	out := make([]types.PersonWithDepartments, 0, len(persons))
	for _, p := range persons {
		deps := byPerson[p.ID]
		if deps == nil {
			deps = []string{}
		}
		out = append(out, types.PersonWithDepartments{Person: p, DepartmentIDs: deps, IsAssigned: len(deps) > 0})
	}
	return out, nil
}

// GetPerson returns a person of the active workspace.
func (s *Service) GetPerson(ctx context.Context, id string) (types.Person, error) {
	if _, err := s.inScope(ctx, "person", id, s.store.Persons().Owner); err != nil {
		return types.Person{}, err
	}
	return s.store.Persons().Get(ctx, id)
}

// CreatePerson adds a person to the active workspace.
func (s *Service) CreatePerson(ctx context.Context, name, role string) (types.Person, error) {
	ws, err := s.scope()
	if err != nil {
		return types.Person{}, err
	}
	return s.store.Persons().Create(ctx, types.Person{WorkspaceID: ws, Name: name, Role: role})
}

// UpdatePerson applies a partial update and stamps the update time.
func (s *Service) UpdatePerson(ctx context.Context, id string, upd types.PersonUpdate) (types.Person, error) {
	if _, err := s.inScope(ctx, "person", id, s.store.Persons().Owner); err != nil {
		return types.Person{}, err
	}
	return s.store.Persons().Update(ctx, id, upd)
}

// DeletePerson removes a person and its assignments.
func (s *Service) DeletePerson(ctx context.Context, id string) error {
	if _, err := s.inScope(ctx, "person", id, s.store.Persons().Owner); err != nil {
		return err
	}
	return s.store.Persons().Delete(ctx, id)
}
