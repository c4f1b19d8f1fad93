// Package importer reconciles backup documents with the entity store.
//
// A document is imported along one of four paths chosen by its kind:
// into a single workspace (current or newly created), into every workspace
// it embeds, into a synthesized workspace for legacy documents, or straight
// into the store for whole-database backups. Records that cannot be written
// are reported one by one in the Result; they never abort the import.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organigrama/internal/backup"
	"github.com/mesh-intelligence/organigrama/internal/ids"
	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Mode is the conflict policy of an import.
type Mode string

const (
	// ModeMerge writes a record only when no record with its id exists.
	ModeMerge Mode = "merge"
	// ModeReplace clears the destination scope before writing.
	ModeReplace Mode = "replace"
)

// ParseMode reads a mode name. The empty string selects ModeMerge.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("%w: got %q", types.ErrInvalidImportMode, s)
	}
}

// Destination selects the target of a single-workspace import.
type Destination int

const (
	DestinationUnset Destination = iota
	DestinationCurrent
	DestinationNew
)

func (d Destination) String() string {
	switch d {
	case DestinationCurrent:
		return "current"
	case DestinationNew:
		return "new"
	default:
		return "unset"
	}
}

// ParseDestination reads a destination name. The empty string is
// DestinationUnset.
func ParseDestination(s string) (Destination, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DestinationUnset, nil
	case "current":
		return DestinationCurrent, nil
	case "new":
		return DestinationNew, nil
	default:
		return DestinationUnset, fmt.Errorf("%w: destination must be current or new, got %q", types.ErrValidation, s)
	}
}

// Options controls one import.
type Options struct {
	Mode Mode
	// Destination and NewWorkspaceName apply to single-workspace documents.
	Destination      Destination
	NewWorkspaceName string
	// Whole imports the document straight into the store whatever its kind.
	Whole bool
}

// Summary counts what an import wrote.
type Summary struct {
	PersonsImported     int      `json:"personsImported"`
	DepartmentsImported int      `json:"departmentsImported"`
	AssignmentsImported int      `json:"assignmentsImported"`
	Skipped             int      `json:"skipped"`
	WorkspaceID         string   `json:"workspaceId,omitempty"`
	WorkspaceName       string   `json:"workspaceName,omitempty"`
	Errors              []string `json:"errors"`
}

// Result is the outcome of an import that ran. Success is false as soon as
// one record failed, even though every other record stays written.
type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Summary Summary `json:"summary"`
}

// Err returns an error wrapping ErrPartialImport when records failed.
func (r Result) Err() error {
	if n := len(r.Summary.Errors); n > 0 {
		return fmt.Errorf("%w: %d records not imported", types.ErrPartialImport, n)
	}
	return nil
}

// Session reports the active workspace.
type Session interface {
	ActiveWorkspaceID() string
}

// Engine imports documents into a store.
type Engine struct {
	store   *sqlite.Backend
	session Session
}

// New returns an engine writing into store. session supplies the current
// workspace for current-destination and whole-database imports.
func New(store *sqlite.Backend, session Session) *Engine {
	return &Engine{store: store, session: session}
}

// Import runs the path matching the document's kind.
func (e *Engine) Import(ctx context.Context, doc *backup.Document, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeMerge
	}
	kind := doc.Kind()
	if opts.Whole {
		kind = backup.KindWhole
	}

	var (
		res Result
		err error
	)
	switch kind {
	case backup.KindMultiWorkspace:
		res, err = e.ImportAllWorkspaces(ctx, doc, opts.Mode)
	case backup.KindLegacy:
		res, err = e.ImportLegacy(ctx, doc)
	case backup.KindWhole:
		res, err = e.ImportDatabase(ctx, doc, opts.Mode)
	default:
		res, err = e.ImportToWorkspace(ctx, doc, opts)
	}

	log := zerolog.Ctx(ctx)
	if err != nil {
		log.Warn().Err(err).Stringer("kind", kind).Str("mode", string(opts.Mode)).Msg("import failed")
		return res, err
	}
	log.Info().
		Stringer("kind", kind).
		Str("mode", string(opts.Mode)).
		Stringer("destination", opts.Destination).
		Int("persons", res.Summary.PersonsImported).
		Int("departments", res.Summary.DepartmentsImported).
		Int("assignments", res.Summary.AssignmentsImported).
		Int("skipped", res.Summary.Skipped).
		Int("errors", len(res.Summary.Errors)).
		Msg("import finished")
	return res, nil
}

// ImportToWorkspace writes a single-workspace document into the current
// workspace or into a new one. Every id is regenerated for a new workspace.
// Ids that already belong to another workspace are regenerated as well.
func (e *Engine) ImportToWorkspace(ctx context.Context, doc *backup.Document, opts Options) (Result, error) {
	target, fresh, err := e.destination(ctx, doc, opts)
	if err != nil {
		return Result{}, err
	}
	if !fresh && opts.Mode == ModeReplace {
		if err := e.store.Workspaces().Clear(ctx, target.ID); err != nil {
			return Result{}, fmt.Errorf("clearing workspace %s: %w", target.ID, err)
		}
	}

	s := Summary{WorkspaceID: target.ID, WorkspaceName: target.Name, Errors: []string{}}
	w := e.writer(target.ID, fresh, opts.Mode, "", &s)
	w.write(ctx, doc.Data.Persons, doc.Data.Departments, doc.Data.Assignments)

	return result(s, fmt.Sprintf(`Importación a "%s" completada con %d errores`, target.Name, len(s.Errors))), nil
}

// ImportLegacy writes a pre-workspace document into a newly synthesized
// workspace.
func (e *Engine) ImportLegacy(ctx context.Context, doc *backup.Document) (Result, error) {
	return e.ImportToWorkspace(ctx, doc, Options{
		Mode:             ModeMerge,
		Destination:      DestinationNew,
		NewWorkspaceName: types.DefaultWorkspaceName,
	})
}

// ImportAllWorkspaces recreates every workspace a multi-workspace document
// embeds, keeping ids, and writes each workspace's records into it.
// Workspaces that already exist are reused; replace mode clears them first.
func (e *Engine) ImportAllWorkspaces(ctx context.Context, doc *backup.Document, mode Mode) (Result, error) {
	if len(doc.Data.Workspaces) == 0 {
		return Result{}, fmt.Errorf("%w: backup contains no workspaces", types.ErrMalformedBackup)
	}

	s := Summary{Errors: []string{}}
	var names []string
	for _, ws := range doc.Data.Workspaces {
		if err := e.prepareWorkspace(ctx, ws, mode); err != nil {
			s.Errors = append(s.Errors, fmt.Sprintf("Error processing workspace %s: %v", ws.Name, err))
			continue
		}
		names = append(names, ws.Name)

		w := e.writer(ws.ID, false, mode, " in workspace "+ws.Name, &s)
		w.write(ctx,
			scoped(doc.Data.Persons, ws.ID, func(p types.Person) string { return p.WorkspaceID }),
			scoped(doc.Data.Departments, ws.ID, func(d types.Department) string { return d.WorkspaceID }),
			scoped(doc.Data.Assignments, ws.ID, func(a backup.Assignment) string { return a.WorkspaceID }))
	}

	s.WorkspaceName = fmt.Sprintf("%d espacios: %s", len(names), strings.Join(names, ", "))
	msg := fmt.Sprintf("Importación completada. Se importaron %d espacios de trabajo", len(names))
	if len(s.Errors) > 0 {
		msg += fmt.Sprintf(" con %d errores", len(s.Errors))
	}
	return result(s, msg), nil
}

// ImportDatabase writes a document straight into the store, keeping ids
// and ignoring which workspace is active. Records without a workspace, or
// naming a workspace the store does not have, are placed in the active
// workspace. An assignment only needs both endpoints to exist and joins
// its person's workspace. Replace mode first clears every record but
// keeps the workspaces.
func (e *Engine) ImportDatabase(ctx context.Context, doc *backup.Document, mode Mode) (Result, error) {
	workspaces, err := e.store.Workspaces().List(ctx)
	if err != nil {
		return Result{}, err
	}
	known := make(map[string]bool, len(workspaces))
	for _, ws := range workspaces {
		known[ws.ID] = true
	}
	active := e.session.ActiveWorkspaceID()
	place := func(ws string) string {
		if known[ws] {
			return ws
		}
		return active
	}

	groups := groupByWorkspace(doc, place)
	if _, orphans := groups[""]; orphans {
		return Result{}, fmt.Errorf("placing records without a workspace: %w", types.ErrNoActiveWorkspace)
	}

	if mode == ModeReplace {
		if err := e.store.ClearAll(ctx); err != nil {
			return Result{}, fmt.Errorf("clearing store: %w", err)
		}
	}

	// Assignments may link records of different workspaces, so every
	// group's persons and departments are written before any assignment.
	s := Summary{Errors: []string{}}
	ordered := orderedGroups(groups)
	writers := make([]*writer, len(ordered))
	for i, g := range ordered {
		writers[i] = e.writer(g.workspace, false, mode, "", &s)
		writers[i].anyWorkspace = true
		writers[i].write(ctx, g.persons, g.departments, nil)
	}
	for i, g := range ordered {
		writers[i].write(ctx, nil, nil, g.assignments)
	}
	return result(s, fmt.Sprintf("Import completed with %d errors", len(s.Errors))), nil
}

func (e *Engine) destination(ctx context.Context, doc *backup.Document, opts Options) (types.Workspace, bool, error) {
	switch opts.Destination {
	case DestinationNew:
		desc := "Importado desde respaldo completo"
		if doc.IsWorkspaceExport {
			origin := doc.WorkspaceName
			if origin == "" {
				origin = "Respaldo de espacio de trabajo"
			}
			desc = "Importado desde: " + origin
		}
		ws, err := e.store.Workspaces().Create(ctx, types.Workspace{
			Name:        opts.NewWorkspaceName,
			Description: desc,
		})
		if err != nil {
			return types.Workspace{}, false, fmt.Errorf("creating destination workspace: %w", err)
		}
		return ws, true, nil
	case DestinationCurrent:
		id := e.session.ActiveWorkspaceID()
		if id == "" {
			return types.Workspace{}, false, types.ErrNoActiveWorkspace
		}
		ws, err := e.store.Workspaces().Get(ctx, id)
		if err != nil {
			return types.Workspace{}, false, err
		}
		return ws, false, nil
	default:
		return types.Workspace{}, false, types.ErrDestinationRequired
	}
}

func (e *Engine) prepareWorkspace(ctx context.Context, ws types.Workspace, mode Mode) error {
	if !ids.Valid(ws.ID) {
		return types.ErrInvalidID
	}
	created, err := e.store.Workspaces().CreateIfAbsent(ctx, ws)
	if err != nil {
		return err
	}
	if !created && mode == ModeReplace {
		return e.store.Workspaces().Clear(ctx, ws.ID)
	}
	return nil
}

func (e *Engine) writer(workspaceID string, fresh bool, mode Mode, where string, s *Summary) *writer {
	return &writer{
		store:     e.store,
		workspace: workspaceID,
		fresh:     fresh,
		mode:      mode,
		where:     where,
		remap:     make(map[string]string),
		summary:   s,
	}
}

func result(s Summary, msg string) Result {
	return Result{Success: len(s.Errors) == 0, Message: msg, Summary: s}
}

func scoped[T any](records []T, workspaceID string, workspaceOf func(T) string) []T {
	var out []T
	for _, r := range records {
		if workspaceOf(r) == workspaceID {
			out = append(out, r)
		}
	}
	return out
}

type group struct {
	workspace   string
	first       int
	persons     []types.Person
	departments []types.Department
	assignments []backup.Assignment
}

func groupByWorkspace(doc *backup.Document, place func(string) string) map[string]*group {
	groups := make(map[string]*group)
	get := func(ws string) *group {
		g, ok := groups[ws]
		if !ok {
			g = &group{workspace: ws, first: len(groups)}
			groups[ws] = g
		}
		return g
	}
	for _, p := range doc.Data.Persons {
		g := get(place(p.WorkspaceID))
		g.persons = append(g.persons, p)
	}
	for _, d := range doc.Data.Departments {
		g := get(place(d.WorkspaceID))
		g.departments = append(g.departments, d)
	}
	for _, a := range doc.Data.Assignments {
		g := get(place(a.WorkspaceID))
		g.assignments = append(g.assignments, a)
	}
	return groups
}

func orderedGroups(groups map[string]*group) []*group {
	out := make([]*group, len(groups))
	for _, g := range groups {
		out[g.first] = g
	}
	return out
}
