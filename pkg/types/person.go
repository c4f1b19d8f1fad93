package types

import "time"

// Person belongs to exactly one workspace. WorkspaceID does not change after
// creation.
type Person struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PersonUpdate is a partial update. Nil fields are left unchanged.
type PersonUpdate struct {
	Name *string
	Role *string
}

// PersonWithDepartments enriches a person with the departments it is
// assigned to.
type PersonWithDepartments struct {
	Person
	DepartmentIDs []string `json:"departmentIds"`
	IsAssigned    bool     `json:"isAssigned"`
}
