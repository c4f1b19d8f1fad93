package orgchart

import (
	"context"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Assign puts a person into a department at the end of its display order.
// Assigning a pair that is already assigned changes nothing.
func (s *Service) Assign(ctx context.Context, personID, departmentID string) (types.Assignment, error) {
	ws, err := s.inScope(ctx, "person", personID, s.store.Persons().Owner)
	if err != nil {
		return types.Assignment{}, err
	}
	if _, err := s.inScope(ctx, "department", departmentID, s.store.Departments().Owner); err != nil {
		return types.Assignment{}, err
	}
	a, created, err := s.store.Assignments().Assign(ctx, ws, personID, departmentID)
	if err != nil {
		return types.Assignment{}, err
	}
	if created {
		s.log.Debug().Str("person_id", personID).Str("department_id", departmentID).Int("order", a.Order).Msg("assigned")
	}
	return a, nil
}

// Unassign removes a person from a department. Absent pairs are ignored.
func (s *Service) Unassign(ctx context.Context, personID, departmentID string) error {
	return s.store.Assignments().Unassign(ctx, personID, departmentID)
}

// UnassignAll removes a person from every department.
func (s *Service) UnassignAll(ctx context.Context, personID string) (int, error) {
	if _, err := s.inScope(ctx, "person", personID, s.store.Persons().Owner); err != nil {
		return 0, err
	}
	return s.store.Assignments().UnassignAll(ctx, personID)
}

// Reorder rewrites the display order of a department to match
// orderedPersonIDs. Every listed person must be assigned to the department.
func (s *Service) Reorder(ctx context.Context, departmentID string, orderedPersonIDs []string) error {
	if _, err := s.inScope(ctx, "department", departmentID, s.store.Departments().Owner); err != nil {
		return err
	}
	return s.store.Assignments().Reorder(ctx, departmentID, orderedPersonIDs)
}

// PeopleByDepartment returns the people of a department in display order.
func (s *Service) PeopleByDepartment(ctx context.Context, departmentID string) ([]types.Person, error) {
	return s.store.Assignments().PeopleInDepartment(ctx, departmentID)
}

// DepartmentsByPerson returns the ids of the departments a person is in.
func (s *Service) DepartmentsByPerson(ctx context.Context, personID string) ([]string, error) {
	list, err := s.store.Assignments().ListByPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.DepartmentID)
	}
	return out, nil
}

// AssignmentCount returns how many people a department has.
func (s *Service) AssignmentCount(ctx context.Context, departmentID string) (int, error) {
	return s.store.Assignments().CountByDepartment(ctx, departmentID)
}

// IsAssigned reports whether a person is in a department.
func (s *Service) IsAssigned(ctx context.Context, personID, departmentID string) (bool, error) {
	_, found, err := s.store.Assignments().Find(ctx, personID, departmentID)
	return found, err
}
