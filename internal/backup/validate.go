package backup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/organigrama/internal/ids"
)

// Result is the outcome of validating a backup. Errors lists every problem
// found, not just the first.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks raw backup bytes for structural and referential
// integrity. It never fails; problems are reported in the Result.
//
// Assignments may only reference persons and departments that passed
// validation themselves. A document that validates always decodes.
func Validate(raw []byte) Result {
	if !gjson.ValidBytes(raw) {
		return invalid("File is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return invalid("Invalid backup file format")
	}

	var errs []string
	if v := root.Get("version"); v.Type != gjson.String || v.Str == "" {
		errs = append(errs, "Missing or invalid version field")
	}
	if !validTimestamp(root.Get("exportedAt")) {
		errs = append(errs, "Missing or invalid exportedAt field")
	}
	for _, f := range []string{"workspaceId", "workspaceName"} {
		if !optional(root.Get(f), gjson.String) {
			errs = append(errs, f+" must be a string")
		}
	}
	for _, f := range []string{"isWorkspaceExport", "isMultiWorkspaceExport"} {
		if !optionalBool(root.Get(f)) {
			errs = append(errs, f+" must be a boolean")
		}
	}

	data := root.Get("data")
	if !data.IsObject() {
		errs = append(errs, "Missing data field")
		return Result{Valid: false, Errors: errs}
	}

	validPersons := make(map[string]bool)
	if persons := data.Get("persons"); !persons.IsArray() {
		errs = append(errs, "persons must be an array")
	} else {
		for i, p := range persons.Array() {
			if problem := checkPerson(p); problem != "" {
				errs = append(errs, fmt.Sprintf("Invalid person at index %d: %s", i, problem))
				continue
			}
			validPersons[p.Get("id").Str] = true
		}
	}

	validDepartments := make(map[string]bool)
	if departments := data.Get("departments"); !departments.IsArray() {
		errs = append(errs, "departments must be an array")
	} else {
		for i, d := range departments.Array() {
			if problem := checkDepartment(d); problem != "" {
				errs = append(errs, fmt.Sprintf("Invalid department at index %d: %s", i, problem))
				continue
			}
			validDepartments[d.Get("id").Str] = true
		}
	}

	if assignments := data.Get("assignments"); !assignments.IsArray() {
		errs = append(errs, "assignments must be an array")
	} else {
		for i, a := range assignments.Array() {
			if problem := checkAssignment(a, validPersons, validDepartments); problem != "" {
				errs = append(errs, fmt.Sprintf("Invalid assignment at index %d: %s", i, problem))
			}
		}
	}

	if ws := data.Get("workspace"); ws.Exists() && ws.Type != gjson.Null {
		if problem := checkWorkspace(ws); problem != "" {
			errs = append(errs, "Invalid workspace: "+problem)
		}
	}
	if workspaces := data.Get("workspaces"); workspaces.Exists() && workspaces.Type != gjson.Null {
		if !workspaces.IsArray() {
			errs = append(errs, "workspaces must be an array")
		} else {
			for i, ws := range workspaces.Array() {
				if problem := checkWorkspace(ws); problem != "" {
					errs = append(errs, fmt.Sprintf("Invalid workspace at index %d: %s", i, problem))
				}
			}
		}
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return Result{Valid: true, Errors: []string{}}
}

func invalid(msg string) Result {
	return Result{Valid: false, Errors: []string{msg}}
}

func checkPerson(p gjson.Result) string {
	if !p.IsObject() {
		return "not an object"
	}
	var problems []string
	if !validID(p.Get("id")) {
		problems = append(problems, "invalid id")
	}
	if !nonEmptyString(p.Get("name")) {
		problems = append(problems, "name must be a non-empty string")
	}
	if p.Get("role").Type != gjson.String {
		problems = append(problems, "role must be a string")
	}
	problems = appendWorkspaceIDProblem(problems, p)
	problems = appendTimestampProblems(problems, p, "createdAt", "updatedAt")
	return strings.Join(problems, ", ")
}

func checkDepartment(d gjson.Result) string {
	if !d.IsObject() {
		return "not an object"
	}
	var problems []string
	if !validID(d.Get("id")) {
		problems = append(problems, "invalid id")
	}
	if !nonEmptyString(d.Get("name")) {
		problems = append(problems, "name must be a non-empty string")
	}
	for _, path := range []string{"position.x", "position.y", "size.width", "size.height"} {
		if !number(d.Get(path)) {
			problems = append(problems, path+" must be a number")
		}
	}
	problems = appendWorkspaceIDProblem(problems, d)
	problems = appendTimestampProblems(problems, d, "createdAt", "updatedAt")
	return strings.Join(problems, ", ")
}

func checkAssignment(a gjson.Result, persons, departments map[string]bool) string {
	if !a.IsObject() {
		return "not an object"
	}
	var problems []string
	if !validID(a.Get("id")) {
		problems = append(problems, "invalid id")
	}
	if pid := a.Get("personId"); pid.Type != gjson.String || !persons[pid.Str] {
		problems = append(problems, "personId does not match a valid person")
	}
	if did := a.Get("departmentId"); did.Type != gjson.String || !departments[did.Str] {
		problems = append(problems, "departmentId does not match a valid department")
	}
	if o := a.Get("order"); o.Exists() && o.Type != gjson.Null && !integer(o) {
		problems = append(problems, "order must be an integer")
	}
	problems = appendWorkspaceIDProblem(problems, a)
	problems = appendTimestampProblems(problems, a, "createdAt")
	return strings.Join(problems, ", ")
}

func checkWorkspace(w gjson.Result) string {
	if !w.IsObject() {
		return "not an object"
	}
	var problems []string
	if !nonEmptyString(w.Get("id")) {
		problems = append(problems, "invalid id")
	}
	if !nonEmptyString(w.Get("name")) {
		problems = append(problems, "name must be a non-empty string")
	}
	if !optional(w.Get("description"), gjson.String) {
		problems = append(problems, "description must be a string")
	}
	if !optionalBool(w.Get("isDefault")) {
		problems = append(problems, "isDefault must be a boolean")
	}
	problems = appendTimestampProblems(problems, w, "createdAt", "updatedAt")
	return strings.Join(problems, ", ")
}

func appendWorkspaceIDProblem(problems []string, r gjson.Result) []string {
	if !optional(r.Get("workspaceId"), gjson.String) {
		problems = append(problems, "workspaceId must be a string")
	}
	return problems
}

func appendTimestampProblems(problems []string, r gjson.Result, fields ...string) []string {
	for _, f := range fields {
		if !validTimestamp(r.Get(f)) {
			problems = append(problems, f+" must be an ISO-8601 timestamp")
		}
	}
	return problems
}

func validID(v gjson.Result) bool {
	return v.Type == gjson.String && ids.Valid(v.Str)
}

func nonEmptyString(v gjson.Result) bool {
	return v.Type == gjson.String && strings.TrimSpace(v.Str) != ""
}

// validTimestamp accepts exactly what time.Time decodes from JSON.
func validTimestamp(v gjson.Result) bool {
	if v.Type != gjson.String {
		return false
	}
	var t time.Time
	return t.UnmarshalJSON([]byte(v.Raw)) == nil
}

// number accepts JSON numbers that fit a float64.
func number(v gjson.Result) bool {
	if v.Type != gjson.Number {
		return false
	}
	_, err := strconv.ParseFloat(v.Raw, 64)
	return err == nil
}

// integer accepts JSON numbers that decode into an int.
func integer(v gjson.Result) bool {
	if v.Type != gjson.Number {
		return false
	}
	_, err := strconv.ParseInt(v.Raw, 10, strconv.IntSize)
	return err == nil
}

// optional reports whether v is absent, null, or of type typ.
func optional(v gjson.Result, typ gjson.Type) bool {
	return !v.Exists() || v.Type == gjson.Null || v.Type == typ
}

func optionalBool(v gjson.Result) bool {
	return !v.Exists() || v.Type == gjson.Null || v.IsBool()
}
