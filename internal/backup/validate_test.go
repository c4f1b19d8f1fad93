package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const (
	personA    = "2b4c6d8e-1a3b-4c5d-8e9f-0a1b2c3d4e5f"
	personB    = "3c5d7e9f-2b4c-4d6e-9fa0-1b2c3d4e5f60"
	department = "4d6e8fa0-3c5d-4e7f-a0b1-2c3d4e5f6071"
	assignment = "5e7f9ab1-4d6e-4f80-b1c2-3d4e5f607182"
)

const validBackup = `{
  "version": "1.0",
  "exportedAt": "2024-03-01T10:00:00.000Z",
  "data": {
    "persons": [
      {"id": "` + personA + `", "name": "Ana", "role": "CEO", "createdAt": "2024-01-01T00:00:00.000Z", "updatedAt": "2024-01-02T00:00:00.000Z"}
    ],
    "departments": [
      {"id": "` + department + `", "name": "Ventas", "position": {"x": 50, "y": 50.5}, "size": {"width": 300, "height": 400},
       "createdAt": "2024-01-01T00:00:00.000Z", "updatedAt": "2024-01-01T00:00:00.000Z"}
    ],
    "assignments": [
      {"id": "` + assignment + `", "personId": "` + personA + `", "departmentId": "` + department + `", "createdAt": "2024-01-03T00:00:00.000Z"}
    ]
  }
}`

func TestValidate_AcceptsValidBackup(t *testing.T) {
	res := Validate([]byte(validBackup))
	assert.True(t, res.Valid, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		minErrors int
		contains  []string
	}{
		{
			name:      "not json",
			raw:       `{"version": `,
			minErrors: 1,
			contains:  []string{"File is not valid JSON"},
		},
		{
			name:      "not an object",
			raw:       `[1, 2, 3]`,
			minErrors: 1,
			contains:  []string{"Invalid backup file format"},
		},
		{
			name:      "missing data stops early",
			raw:       `{"version": 2, "exportedAt": ""}`,
			minErrors: 3,
			contains:  []string{"Missing or invalid version field", "Missing or invalid exportedAt field", "Missing data field"},
		},
		{
			name:      "collections must be arrays",
			raw:       `{"version": "1.0", "exportedAt": "x", "data": {"persons": {}, "departments": null}}`,
			minErrors: 3,
			contains:  []string{"persons must be an array", "departments must be an array", "assignments must be an array"},
		},
		{
			name: "every invalid record is reported",
			raw: `{"version": "1.0", "exportedAt": "x", "data": {
              "persons": [
                {"id": "not-a-uuid", "name": "Ana", "role": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"},
                {"id": "` + personB + `", "name": "   ", "role": 3, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "yesterday"}
              ],
              "departments": [
                {"id": "` + department + `", "name": "Ventas", "position": {"x": "50", "y": 50}, "size": {"width": 300}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}
              ],
              "assignments": []}}`,
			minErrors: 3,
			contains: []string{
				"Invalid person at index 0: invalid id",
				"Invalid person at index 1: name must be a non-empty string, role must be a string, updatedAt must be an ISO-8601 timestamp",
				"Invalid department at index 0: position.x must be a number, size.height must be a number",
			},
		},
		{
			name: "assignment to an invalid person is flagged individually",
			raw: `{"version": "1.0", "exportedAt": "x", "data": {
              "persons": [{"id": "` + personA + `", "name": "", "role": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
              "departments": [{"id": "` + department + `", "name": "Ventas", "position": {"x": 1, "y": 2}, "size": {"width": 3, "height": 4}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
              "assignments": [{"id": "` + assignment + `", "personId": "` + personA + `", "departmentId": "` + department + `", "createdAt": "2024-01-01T00:00:00Z"}]}}`,
			minErrors: 2,
			contains:  []string{"Invalid assignment at index 0: personId does not match a valid person"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate([]byte(tt.raw))
			assert.False(t, res.Valid)
			assert.GreaterOrEqual(t, len(res.Errors), tt.minErrors, res.Errors)
			for _, want := range tt.contains {
				assert.Contains(t, res.Errors, want)
			}
		})
	}
}

func TestValidate_RejectsWhatCannotDecode(t *testing.T) {
	const person = `{"id": "` + personA + `", "name": "Ana", "role": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}`
	const dept = `{"id": "` + department + `", "name": "Ventas", "position": {"x": 1, "y": 2}, "size": {"width": 3, "height": 4}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}`
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "date-only exportedAt",
			raw:  `{"version": "1.0", "exportedAt": "2024-01-15", "data": {"persons": [], "departments": [], "assignments": []}}`,
			want: []string{"Missing or invalid exportedAt field"},
		},
		{
			name: "fractional order",
			raw: `{"version": "1.0", "exportedAt": "2024-01-15T00:00:00Z", "data": {"persons": [` + person + `], "departments": [` + dept + `],
              "assignments": [{"id": "` + assignment + `", "personId": "` + personA + `", "departmentId": "` + department + `", "order": 1.5, "createdAt": "2024-01-01T00:00:00Z"}]}}`,
			want: []string{"Invalid assignment at index 0: order must be an integer"},
		},
		{
			name: "coordinate out of float range",
			raw: `{"version": "1.0", "exportedAt": "2024-01-15T00:00:00Z", "data": {"persons": [], "departments": [
              {"id": "` + department + `", "name": "Ventas", "position": {"x": 1e400, "y": 2}, "size": {"width": 3, "height": 4}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
              "assignments": []}}`,
			want: []string{"Invalid department at index 0: position.x must be a number"},
		},
		{
			name: "workspace records are checked",
			raw: `{"version": "2.0", "exportedAt": "2024-01-15T00:00:00Z", "isMultiWorkspaceExport": "yes", "workspaceId": 7,
              "data": {"persons": [], "departments": [], "assignments": [],
              "workspace": {"id": "w1", "name": "Ventas", "createdAt": "2024-01-15", "updatedAt": "2024-01-15T00:00:00Z"},
              "workspaces": [{"id": "", "name": "", "description": 3, "isDefault": 1, "createdAt": "2024-01-15T00:00:00Z"}]}}`,
			want: []string{
				"workspaceId must be a string",
				"isMultiWorkspaceExport must be a boolean",
				"Invalid workspace: createdAt must be an ISO-8601 timestamp",
				"Invalid workspace at index 0: invalid id, name must be a non-empty string, description must be a string, isDefault must be a boolean, updatedAt must be an ISO-8601 timestamp",
			},
		},
		{
			name: "record workspace ids must be strings",
			raw: `{"version": "2.0", "exportedAt": "2024-01-15T00:00:00Z", "data": {"persons": [
              {"id": "` + personA + `", "workspaceId": 1, "name": "Ana", "role": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
              "departments": [], "assignments": []}}`,
			want: []string{"Invalid person at index 0: workspaceId must be a string"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate([]byte(tt.raw))
			assert.False(t, res.Valid)
			assert.Equal(t, tt.want, res.Errors)
		})
	}
}

// Every document Validate accepts must decode.
func TestValidate_AcceptedDocumentsParse(t *testing.T) {
	docs := map[string]string{
		"legacy": validBackup,
		"empty": `{"version": "1.0", "exportedAt": "2024-01-15T08:30:00+02:00", "data": {"persons": [], "departments": [], "assignments": []}}`,
		"nulls": `{"version": "1.0", "exportedAt": "2024-01-15T08:30:00Z", "workspaceId": null, "isWorkspaceExport": null,
          "data": {"persons": [], "departments": [], "assignments": [], "workspace": null, "workspaces": null}}`,
		"workspace": `{"version": "2.0", "exportedAt": "2024-01-15T08:30:00.123Z", "workspaceId": "w1", "workspaceName": "Ventas", "isWorkspaceExport": true,
          "data": {"persons": [{"id": "` + personA + `", "workspaceId": "w1", "name": "Ana", "role": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
          "departments": [{"id": "` + department + `", "workspaceId": "w1", "name": "Ventas", "position": {"x": 1, "y": 2}, "size": {"width": 3, "height": 4}, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}],
          "assignments": [{"id": "` + assignment + `", "workspaceId": "w1", "personId": "` + personA + `", "departmentId": "` + department + `", "order": 3, "createdAt": "2024-01-01T00:00:00Z"}],
          "workspace": {"id": "w1", "name": "Ventas", "description": "", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}}}`,
		"multi": `{"version": "2.0", "exportedAt": "2024-01-15T08:30:00Z", "isMultiWorkspaceExport": true,
          "data": {"persons": [], "departments": [], "assignments": [],
          "workspaces": [{"id": "w1", "name": "Ventas", "isDefault": true, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}]}}`,
	}
	for name, raw := range docs {
		t.Run(name, func(t *testing.T) {
			res := Validate([]byte(raw))
			require.True(t, res.Valid, res.Errors)
			_, err := Parse([]byte(raw))
			assert.NoError(t, err)
		})
	}
}

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(validBackup))
	require.NoError(t, err)
	assert.Equal(t, VersionWhole, doc.Version)
	require.Len(t, doc.Data.Assignments, 1)
	assert.Nil(t, doc.Data.Assignments[0].Order)
	assert.Equal(t, 50.5, doc.Data.Departments[0].Position.Y)
	assert.Equal(t, KindLegacy, doc.Kind())

	_, err = Parse([]byte(`{"version": "1.0"}`))
	assert.ErrorIs(t, err, types.ErrMalformedBackup)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Len(t, malformed.Errors, 2)
}
