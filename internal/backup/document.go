// Package backup exports the entity store to JSON backup documents and
// validates and parses documents read back from disk.
package backup

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Document format versions.
const (
	// VersionWhole tags whole-database exports, the pre-workspace format.
	VersionWhole = "1.0"
	// VersionWorkspaces tags single- and multi-workspace exports.
	VersionWorkspaces = "2.0"
)

// Kind classifies a document for import.
type Kind int

// Document kinds. KindWhole is never detected; it is chosen explicitly by
// callers that want the pre-workspace upsert semantics.
const (
	KindLegacy Kind = iota + 1
	KindWorkspace
	KindMultiWorkspace
	KindWhole
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindWorkspace:
		return "workspace"
	case KindMultiWorkspace:
		return "multi-workspace"
	case KindWhole:
		return "whole"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Document is a backup as written to and read from disk.
type Document struct {
	Version                string    `json:"version"`
	ExportedAt             time.Time `json:"exportedAt"`
	WorkspaceID            string    `json:"workspaceId,omitempty"`
	WorkspaceName          string    `json:"workspaceName,omitempty"`
	IsWorkspaceExport      bool      `json:"isWorkspaceExport,omitempty"`
	IsMultiWorkspaceExport bool      `json:"isMultiWorkspaceExport,omitempty"`
	Data                   Data      `json:"data"`
}

// Data holds the records of a document.
type Data struct {
	Persons     []types.Person     `json:"persons"`
	Departments []types.Department `json:"departments"`
	Assignments []Assignment       `json:"assignments"`
	Workspace   *types.Workspace   `json:"workspace,omitempty"`
	Workspaces  []types.Workspace  `json:"workspaces,omitempty"`
}

// Assignment is the on-disk assignment record. Order is absent in backups
// written before display order existed.
type Assignment struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspaceId,omitempty"`
	PersonID     string    `json:"personId"`
	DepartmentID string    `json:"departmentId"`
	Order        *int      `json:"order,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Kind detects how the document should be imported:
//   - the multi-workspace flag wins;
//   - a document without any workspace marker, or whose first person (or
//     first department, when there are no persons) has no workspace id, is
//     legacy;
//   - everything else is a single-workspace export.
func (d *Document) Kind() Kind {
	if d.IsMultiWorkspaceExport {
		return KindMultiWorkspace
	}
	if !d.hasWorkspaceMarkers() || d.firstRecordUnscoped() {
		return KindLegacy
	}
	return KindWorkspace
}

func (d *Document) hasWorkspaceMarkers() bool {
	if d.IsWorkspaceExport || d.WorkspaceID != "" || d.Data.Workspace != nil || len(d.Data.Workspaces) > 0 {
		return true
	}
	for _, p := range d.Data.Persons {
		if p.WorkspaceID != "" {
			return true
		}
	}
	for _, dep := range d.Data.Departments {
		if dep.WorkspaceID != "" {
			return true
		}
	}
	for _, a := range d.Data.Assignments {
		if a.WorkspaceID != "" {
			return true
		}
	}
	return false
}

func (d *Document) firstRecordUnscoped() bool {
	if len(d.Data.Persons) > 0 {
		return d.Data.Persons[0].WorkspaceID == ""
	}
	if len(d.Data.Departments) > 0 {
		return d.Data.Departments[0].WorkspaceID == ""
	}
	return false
}

// Counts returns the number of records of each kind.
func (d *Document) Counts() (persons, departments, assignments int) {
	return len(d.Data.Persons), len(d.Data.Departments), len(d.Data.Assignments)
}

// Summary describes the document contents for the user.
func (d *Document) Summary() string {
	p, dep, a := d.Counts()
	return fmt.Sprintf("Exported %d persons, %d departments, %d assignments", p, dep, a)
}
