package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Source provides consistent snapshots of the store. An empty workspace id
// selects every workspace.
type Source interface {
	Snapshot(ctx context.Context, workspaceID string) (sqlite.Snapshot, error)
}

// Exporter builds backup documents from a Source.
type Exporter struct {
	src Source
	now func() time.Time
}

// NewExporter returns an exporter reading from src.
func NewExporter(src Source) *Exporter {
	return &Exporter{src: src, now: time.Now}
}

// ExportWhole snapshots every person, department and assignment regardless
// of workspace, in the pre-workspace format.
func (e *Exporter) ExportWhole(ctx context.Context) (*Document, error) {
	s, err := e.src.Snapshot(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("exporting database: %w", err)
	}
	return e.document(VersionWhole, s), nil
}

// ExportWorkspace snapshots one workspace. The error wraps ErrNotFound when
// the workspace does not exist.
func (e *Exporter) ExportWorkspace(ctx context.Context, workspaceID string) (*Document, error) {
	s, err := e.src.Snapshot(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("exporting workspace %s: %w", workspaceID, err)
	}
	if len(s.Workspaces) == 0 {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, types.ErrNotFound)
	}
	ws := s.Workspaces[0]

	doc := e.document(VersionWorkspaces, s)
	doc.IsWorkspaceExport = true
	doc.WorkspaceID = ws.ID
	doc.WorkspaceName = ws.Name
	doc.Data.Workspace = &ws
	return doc, nil
}

// ExportAllWorkspaces snapshots every workspace with its records.
func (e *Exporter) ExportAllWorkspaces(ctx context.Context) (*Document, error) {
	s, err := e.src.Snapshot(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("exporting all workspaces: %w", err)
	}
	doc := e.document(VersionWorkspaces, s)
	doc.IsMultiWorkspaceExport = true
	doc.Data.Workspaces = s.Workspaces
	return doc, nil
}

func (e *Exporter) document(version string, s sqlite.Snapshot) *Document {
	doc := &Document{
		Version:    version,
		ExportedAt: e.now().UTC(),
		Data: Data{
			Persons:     nonNil(s.Persons),
			Departments: nonNil(s.Departments),
			Assignments: make([]Assignment, 0, len(s.Assignments)),
		},
	}
	for _, a := range s.Assignments {
		order := a.Order
		doc.Data.Assignments = append(doc.Data.Assignments, Assignment{
			ID:           a.ID,
			WorkspaceID:  a.WorkspaceID,
			PersonID:     a.PersonID,
			DepartmentID: a.DepartmentID,
			Order:        &order,
			CreatedAt:    a.CreatedAt,
		})
	}
	return doc
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
