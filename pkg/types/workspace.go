package types

import (
	"strings"
	"time"
)

// DefaultWorkspaceName names the workspace synthesized by the schema
// migration and by legacy imports.
const DefaultWorkspaceName = "Mi Organigrama"

// DefaultWorkspaceDescription describes the workspace synthesized by the
// schema migration.
const DefaultWorkspaceDescription = "Workspace creado automáticamente"

// Workspace is a named container for one organizational chart.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsDefault   bool      `json:"isDefault,omitempty"`
}

// NormalizeName trims surrounding whitespace from a user-supplied name and
// returns ErrInvalidName when nothing is left.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// WorkspaceUpdate is a partial update. Nil fields are left unchanged.
type WorkspaceUpdate struct {
	Name        *string
	Description *string
}
