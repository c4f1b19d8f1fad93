package types

import "time"

// Assignment joins one person to one department within a workspace. At most
// one assignment exists per (PersonID, DepartmentID) pair. Order defines the
// display position of the person inside the department.
type Assignment struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspaceId,omitempty"`
	PersonID     string    `json:"personId"`
	DepartmentID string    `json:"departmentId"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
}
