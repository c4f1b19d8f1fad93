package orgchart

import (
	"context"

	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// WatchWorkspaces delivers the workspace list now and after every change.
func (s *Service) WatchWorkspaces(ctx context.Context) <-chan live.Snapshot[[]types.Workspace] {
	return live.Watch(ctx, s.hub, s.ListWorkspaces, types.WorkspacesTable)
}

// WatchPersons delivers the persons of the active workspace, with their
// departments, now and after every relevant change including a workspace
// switch.
func (s *Service) WatchPersons(ctx context.Context) <-chan live.Snapshot[[]types.PersonWithDepartments] {
	return live.Watch(ctx, s.hub, s.ListPersonsWithDepartments,
		types.PersonsTable, types.AssignmentsTable, live.TopicActiveWorkspace)
}

// WatchDepartments delivers the departments of the active workspace, with
// their people, now and after every relevant change.
func (s *Service) WatchDepartments(ctx context.Context) <-chan live.Snapshot[[]types.DepartmentWithPeople] {
	return live.Watch(ctx, s.hub, s.ListDepartmentsWithPeople,
		types.DepartmentsTable, types.PersonsTable, types.AssignmentsTable, live.TopicActiveWorkspace)
}

// WatchPeopleByDepartment delivers the ordered people of one department.
func (s *Service) WatchPeopleByDepartment(ctx context.Context, departmentID string) <-chan live.Snapshot[[]types.Person] {
	return live.Watch(ctx, s.hub, func(ctx context.Context) ([]types.Person, error) {
		return s.PeopleByDepartment(ctx, departmentID)
	}, types.PersonsTable, types.AssignmentsTable)
}
