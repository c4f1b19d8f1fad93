package types

import "time"

// Department defaults for newly created departments.
const (
	DefaultDepartmentName   = "Nuevo Departamento"
	DefaultDepartmentX      = 50
	DefaultDepartmentY      = 50
	DefaultDepartmentWidth  = 300
	DefaultDepartmentHeight = 400
)

// Canvas boundaries. Positions outside are clamped by Position.Clamp.
const (
	CanvasMinX = -5000
	CanvasMaxX = 5000
	CanvasMinY = -5000
	CanvasMaxY = 5000
)

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp returns the position limited to the canvas boundaries.
func (p Position) Clamp() Position {
	return Position{
		X: clamp(p.X, CanvasMinX, CanvasMaxX),
		Y: clamp(p.Y, CanvasMinY, CanvasMaxY),
	}
}

// Size is the extent of a department on the canvas. Minimum bounds are the
// caller's concern; the store accepts any value.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Department belongs to exactly one workspace.
type Department struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	Name        string    `json:"name"`
	Position    Position  `json:"position"`
	Size        Size      `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DepartmentUpdate is a partial update. Nil fields are left unchanged.
type DepartmentUpdate struct {
	Name     *string
	Position *Position
	Size     *Size
}

// DepartmentWithPeople enriches a department with its people in display order.
type DepartmentWithPeople struct {
	Department
	People      []Person `json:"people"`
	PersonCount int      `json:"personCount"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
