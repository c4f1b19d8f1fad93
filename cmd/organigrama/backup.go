package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/internal/backup"
	"github.com/mesh-intelligence/organigrama/internal/importer"
	"github.com/mesh-intelligence/organigrama/internal/paths"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// maxShownErrors bounds the per-record errors printed after an import.
const maxShownErrors = 10

// exportResult is the --json output of export.
type exportResult struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Persons     int    `json:"persons"`
	Departments int    `json:"departments"`
	Assignments int    `json:"assignments"`
}

func newExportCmd() *cobra.Command {
	var (
		workspaceID string
		all, whole  bool
		outDir      string
		compress    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of a workspace, of all workspaces, or of the whole database",
		Long: `Write a JSON backup file named after its content and the current time.

By default the active workspace is exported. --workspace picks another one,
--all writes every workspace with its records, and --whole writes the
unscoped whole-database format.`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			exp := backup.NewExporter(a.svc.Store())

			var (
				doc *backup.Document
				err error
			)
			switch {
			case all:
				doc, err = exp.ExportAllWorkspaces(ctx)
			case whole:
				doc, err = exp.ExportWhole(ctx)
			default:
				id := workspaceID
				if id == "" {
					id = a.svc.ActiveWorkspaceID()
				}
				if id == "" {
					return types.ErrNoActiveWorkspace
				}
				doc, err = exp.ExportWorkspace(ctx, id)
			}
			if err != nil {
				return err
			}

			dir, err := paths.ResolveExportDir(outDir, settings.GetString(cfgKeyExportDir))
			if err != nil {
				return fmt.Errorf("resolving export dir: %w", err)
			}
			if !cmd.Flags().Changed("compress") {
				compress = settings.GetBool(cfgKeyCompress)
			}
			path, err := backup.Download(dir, doc, backup.DownloadOptions{Compress: compress})
			if err != nil {
				return err
			}

			p, d, asg := doc.Counts()
			res := exportResult{Path: path, Kind: doc.Kind().String(), Persons: p, Departments: d, Assignments: asg}
			return report(cmd, res, "%s\nWrote %s", doc.Summary(), path)
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&workspaceID, "workspace", "w", "", "workspace to export (default: the active one)")
	f.BoolVar(&all, "all", false, "export every workspace")
	f.BoolVar(&whole, "whole", false, "export the whole database without workspace scoping")
	f.StringVarP(&outDir, "out", "o", "", "directory to write the backup to")
	f.BoolVarP(&compress, "compress", "z", false, "write a zstd-compressed .json.zst file")
	cmd.MarkFlagsMutuallyExclusive("workspace", "all", "whole")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a backup file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := backup.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := backup.Validate(raw)
			if flags.jsonMode {
				if err := printJSON(cmd, res); err != nil {
					return err
				}
			}
			doc, err := backup.Parse(raw)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return nil
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Valid %s backup. %s\n", doc.Kind(), doc.Summary())
			return err
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		modeName string
		into     string
		newName  string
		whole    bool
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a backup file",
		Long: `Import a backup file in merge or replace mode.

Merge keeps existing records and skips those already present. Replace clears
what the backup is about to overwrite first: the destination workspace, the
workspaces named in a multi-workspace backup, or the whole database with
--whole. Replace asks for confirmation unless --yes is given.

A single-workspace backup needs a destination: --into current, or
--into new with --name.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !cmd.Flags().Changed("mode") {
				modeName = settings.GetString(cfgKeyImportMode)
			}
			mode, err := importer.ParseMode(modeName)
			if err != nil {
				return err
			}
			dest, err := importer.ParseDestination(into)
			if err != nil {
				return err
			}
			if dest == importer.DestinationUnset && newName != "" {
				dest = importer.DestinationNew
			}

			raw, err := backup.ReadFile(args[0])
			if err != nil {
				return err
			}
			att := importer.New(a.svc.Store(), a.svc).Begin(raw)
			if err := att.Parse(); err != nil {
				return err
			}
			if whole {
				if err := att.Whole(); err != nil {
					return err
				}
			}
			if att.NeedsDestination() {
				if dest == importer.DestinationUnset {
					return fmt.Errorf("%w: use --into current or --into new --name NAME", types.ErrDestinationRequired)
				}
				if err := att.ChooseDestination(dest, newName); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s backup. %s\n", att.Kind(), att.Document().Summary())
			if mode == importer.ModeReplace {
				scope, err := replaceScope(cmd, a, att.Kind(), dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\n!!! REPLACE MODE !!!\nThis deletes %s before importing. It cannot be undone.\n\n", scope)
				ok, err := confirm(cmd, yes, "Continue?")
				if err != nil || !ok {
					return err
				}
			}

			res, err := att.Run(cmd.Context(), mode)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				if err := printJSON(cmd, res); err != nil {
					return err
				}
			} else {
				printImportResult(cmd.OutOrStdout(), res)
			}
			return res.Err()
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&modeName, "mode", "m", string(importer.ModeMerge), "merge or replace (default from config import_mode)")
	f.StringVar(&into, "into", "", "destination of a single-workspace backup: current or new")
	f.StringVar(&newName, "name", "", "name of the new workspace (implies --into new)")
	f.BoolVar(&whole, "whole", false, "import straight into the database ignoring workspaces")
	f.BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// replaceScope describes what a replace-mode import clears.
func replaceScope(cmd *cobra.Command, a *app, kind backup.Kind, dest importer.Destination) (string, error) {
	switch kind {
	case backup.KindWhole:
		return "every person, department and assignment (workspaces are kept)", nil
	case backup.KindMultiWorkspace:
		return "the records of every workspace in the backup that already exists", nil
	case backup.KindWorkspace:
		if dest == importer.DestinationCurrent {
			ws, err := a.svc.ActiveWorkspace(cmd.Context())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("every person, department and assignment in workspace %q", ws.Name), nil
		}
	}
	return "nothing (the backup goes into a new workspace)", nil
}

func printImportResult(w io.Writer, res importer.Result) {
	s := res.Summary
	fmt.Fprintln(w, res.Message)
	if s.WorkspaceName != "" {
		fmt.Fprintf(w, "Workspace: %s\n", s.WorkspaceName)
	}
	fmt.Fprintf(w, "Persons: %d  Departments: %d  Assignments: %d  Skipped: %d\n",
		s.PersonsImported, s.DepartmentsImported, s.AssignmentsImported, s.Skipped)
	if len(s.Errors) == 0 {
		return
	}
	fmt.Fprintln(w, "Errors:")
	for i, e := range s.Errors {
		if i == maxShownErrors {
			fmt.Fprintf(w, "  ... and %d more\n", len(s.Errors)-maxShownErrors)
			break
		}
		fmt.Fprintf(w, "  %s\n", e)
	}
}
