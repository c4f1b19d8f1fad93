package importer

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/organigrama/internal/backup"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// State is the step an Attempt has reached.
type State int

// Attempt states. Only single-workspace documents pass through
// StateDestinationChosen; the others go from StateParsed to StateImporting.
const (
	StateFileSelected State = iota + 1
	StateParsed
	StateDestinationChosen
	StateImporting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFileSelected:
		return "file-selected"
	case StateParsed:
		return "parsed"
	case StateDestinationChosen:
		return "destination-chosen"
	case StateImporting:
		return "importing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrOutOfOrder is returned when an Attempt step is called in the wrong
// state.
var ErrOutOfOrder = fmt.Errorf("%w: import step out of order", types.ErrValidation)

// Attempt walks one file through parsing, destination choice and import.
// It is not safe for concurrent use.
type Attempt struct {
	engine *Engine
	state  State
	raw    []byte
	doc    *backup.Document
	kind   backup.Kind
	opts   Options
	result Result
	err    error
}

// Begin starts an attempt over the raw bytes of a selected file.
func (e *Engine) Begin(raw []byte) *Attempt {
	return &Attempt{engine: e, state: StateFileSelected, raw: raw}
}

// State returns the current step.
func (a *Attempt) State() State { return a.state }

// Kind returns the detected document kind. It is zero before Parse.
func (a *Attempt) Kind() backup.Kind { return a.kind }

// Document returns the parsed document, or nil before Parse.
func (a *Attempt) Document() *backup.Document { return a.doc }

// Result returns the outcome of a completed attempt.
func (a *Attempt) Result() Result { return a.result }

// Err returns the error that failed the attempt.
func (a *Attempt) Err() error { return a.err }

// NeedsDestination reports whether ChooseDestination must be called before
// Run.
func (a *Attempt) NeedsDestination() bool {
	return a.kind == backup.KindWorkspace
}

// Parse validates and decodes the file. Invalid files fail the attempt with
// an error wrapping ErrMalformedBackup.
func (a *Attempt) Parse() error {
	if err := a.expect(StateFileSelected); err != nil {
		return err
	}
	doc, err := backup.Parse(a.raw)
	if err != nil {
		return a.fail(err)
	}
	a.doc, a.kind = doc, doc.Kind()
	a.raw = nil
	a.state = StateParsed
	return nil
}

// Whole switches a parsed document to a whole-database import.
func (a *Attempt) Whole() error {
	if err := a.expect(StateParsed); err != nil {
		return err
	}
	a.kind = backup.KindWhole
	a.opts.Whole = true
	return nil
}

// ChooseDestination picks where a single-workspace document goes. A new
// workspace needs a non-empty name. Invalid choices leave the attempt where
// it was.
func (a *Attempt) ChooseDestination(d Destination, newName string) error {
	if err := a.expect(StateParsed); err != nil {
		return err
	}
	if !a.NeedsDestination() {
		return fmt.Errorf("%w: %s backups have no destination to choose", ErrOutOfOrder, a.kind)
	}
	switch d {
	case DestinationCurrent:
	case DestinationNew:
		if _, err := types.NormalizeName(newName); err != nil {
			return err
		}
	default:
		return types.ErrDestinationRequired
	}
	a.opts.Destination, a.opts.NewWorkspaceName = d, newName
	a.state = StateDestinationChosen
	return nil
}

// Run imports the document under mode. Records that fail individually do
// not fail the attempt; they are listed in the Result.
func (a *Attempt) Run(ctx context.Context, mode Mode) (Result, error) {
	switch a.state {
	case StateParsed:
		if a.NeedsDestination() {
			return Result{}, types.ErrDestinationRequired
		}
	case StateDestinationChosen:
	default:
		return Result{}, a.outOfOrder()
	}

	a.opts.Mode = mode
	a.state = StateImporting
	res, err := a.engine.Import(ctx, a.doc, a.opts)
	if err != nil {
		return Result{}, a.fail(err)
	}
	a.result = res
	a.state = StateCompleted
	return res, nil
}

func (a *Attempt) expect(s State) error {
	if a.state != s {
		return a.outOfOrder()
	}
	return nil
}

func (a *Attempt) outOfOrder() error {
	return fmt.Errorf("%w: attempt is %s", ErrOutOfOrder, a.state)
}

func (a *Attempt) fail(err error) error {
	a.err = err
	a.state = StateFailed
	return err
}
