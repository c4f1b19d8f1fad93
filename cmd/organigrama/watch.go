package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the active workspace's departments every time they change",
		Long: `Print the departments of the active workspace with their people, then print
them again whenever the database changes, including changes made by other
organigrama processes and workspace switches. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return a.svc.Follow(ctx)
			})
			g.Go(func() error {
				files := []string{sqlite.DatabaseFile, sqlite.DatabaseFile + "-wal"}
				return live.Relay(ctx, a.svc.Hub(), a.dataDir, files, types.StandardTableNames...)
			})
			g.Go(func() error {
				return renderBoard(ctx, cmd.OutOrStdout(), a)
			})
			return g.Wait()
		}),
	}
}

// renderBoard prints one board per department snapshot until ctx is done.
func renderBoard(ctx context.Context, w io.Writer, a *app) error {
	log := zerolog.Ctx(ctx)
	for snap := range a.svc.WatchDepartments(ctx) {
		if snap.Err != nil {
			log.Warn().Err(snap.Err).Msg("reading departments")
			continue
		}
		name := "(no active workspace)"
		if ws, err := a.svc.ActiveWorkspace(ctx); err == nil {
			name = ws.Name
		}
		if flags.jsonMode {
			line, err := json.Marshal(board{Workspace: name, Departments: snap.Value})
			if err != nil {
				return fmt.Errorf("encoding board: %w", err)
			}
			fmt.Fprintf(w, "%s\n", line)
			continue
		}
		fmt.Fprintf(w, "== %s  %s ==\n", name, time.Now().Format(time.TimeOnly))
		if len(snap.Value) == 0 {
			fmt.Fprintln(w, "  no departments")
		}
		for _, d := range snap.Value {
			fmt.Fprintf(w, "%s (%d)\n", d.Name, d.PersonCount)
			for _, p := range d.People {
				if p.Role != "" {
					fmt.Fprintf(w, "  - %s, %s\n", p.Name, p.Role)
				} else {
					fmt.Fprintf(w, "  - %s\n", p.Name)
				}
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// board is the --json form of one watch snapshot.
type board struct {
	Workspace   string                       `json:"workspace"`
	Departments []types.DepartmentWithPeople `json:"departments"`
}
