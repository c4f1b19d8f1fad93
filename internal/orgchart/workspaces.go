package orgchart

import (
	"context"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// ListWorkspaces returns all workspaces, oldest first.
func (s *Service) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	return s.store.Workspaces().List(ctx)
}

// GetWorkspace returns one workspace.
func (s *Service) GetWorkspace(ctx context.Context, id string) (types.Workspace, error) {
	return s.store.Workspaces().Get(ctx, id)
}

// CreateWorkspace creates a workspace. The name is trimmed and must not be
// empty. The active workspace does not change.
func (s *Service) CreateWorkspace(ctx context.Context, name, description string) (types.Workspace, error) {
	ws, err := s.store.Workspaces().Create(ctx, types.Workspace{Name: name, Description: description})
	if err != nil {
		return types.Workspace{}, err
	}
	s.log.Info().Str("workspace_id", ws.ID).Str("name", ws.Name).Msg("workspace created")
	return ws, nil
}

// UpdateWorkspace changes the name and/or description of a workspace.
func (s *Service) UpdateWorkspace(ctx context.Context, id string, upd types.WorkspaceUpdate) (types.Workspace, error) {
	return s.store.Workspaces().Update(ctx, id, upd)
}

// RenameWorkspace changes only the name of a workspace.
func (s *Service) RenameWorkspace(ctx context.Context, id, name string) (types.Workspace, error) {
	return s.UpdateWorkspace(ctx, id, types.WorkspaceUpdate{Name: &name})
}

// DeleteWorkspace removes a workspace and everything in it. The active
// workspace cannot be deleted; switch to another one first.
func (s *Service) DeleteWorkspace(ctx context.Context, id string) error {
	if id == s.ActiveWorkspaceID() {
		return types.ErrActiveWorkspaceDelete
	}
	if err := s.store.Workspaces().Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("workspace_id", id).Msg("workspace deleted")
	return nil
}
