// Package types defines the entity types, store configuration, and standard
// errors for the organigrama storage system.
//
// Workspaces are isolated containers. Persons and departments belong to exactly
// one workspace, and assignments join one person to one department with a
// display order.
package types
