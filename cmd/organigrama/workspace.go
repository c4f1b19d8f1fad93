package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}
	cmd.AddCommand(
		newWorkspaceListCmd(),
		newWorkspaceCreateCmd(),
		newWorkspaceRenameCmd(),
		newWorkspaceDescribeCmd(),
		newWorkspaceDeleteCmd(),
		newWorkspaceSwitchCmd(),
		newWorkspaceCurrentCmd(),
	)
	return cmd
}

func newWorkspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces, oldest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			list, err := a.svc.ListWorkspaces(cmd.Context())
			if err != nil {
				return err
			}
			active := a.svc.ActiveWorkspaceID()
			return render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "\tID\tNAME\tDESCRIPTION")
				for _, ws := range list {
					mark := ""
					if ws.ID == active {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, ws.ID, ws.Name, ws.Description)
				}
			})
		}),
	}
}

func newWorkspaceCreateCmd() *cobra.Command {
	var (
		description string
		switchTo    bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.CreateWorkspace(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			if switchTo {
				if err := a.svc.SwitchWorkspace(cmd.Context(), ws.ID); err != nil {
					return err
				}
			}
			return report(cmd, ws, "Created workspace %s (%s)", ws.Name, ws.ID)
		}),
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "workspace description")
	cmd.Flags().BoolVar(&switchTo, "switch", false, "make the new workspace active")
	return cmd
}

func newWorkspaceRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.RenameWorkspace(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return report(cmd, ws, "Renamed workspace %s to %s", ws.ID, ws.Name)
		}),
	}
}

func newWorkspaceDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id> <description>",
		Short: "Set a workspace description",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.UpdateWorkspace(cmd.Context(), args[0], types.WorkspaceUpdate{Description: &args[1]})
			if err != nil {
				return err
			}
			return report(cmd, ws, "Updated workspace %s", ws.Name)
		}),
	}
}

func newWorkspaceDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workspace and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.GetWorkspace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ws.ID == a.svc.ActiveWorkspaceID() {
				return types.ErrActiveWorkspaceDelete
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete workspace %q with all its people, departments and assignments?", ws.Name))
			if err != nil || !ok {
				return err
			}
			if err := a.svc.DeleteWorkspace(cmd.Context(), ws.ID); err != nil {
				return err
			}
			return report(cmd, ws, "Deleted workspace %s", ws.Name)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newWorkspaceSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a workspace active",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.SwitchWorkspace(cmd.Context(), args[0]); err != nil {
				return err
			}
			ws, err := a.svc.ActiveWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, ws, "Switched to workspace %s", ws.Name)
		}),
	}
}

func newWorkspaceCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active workspace",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.ActiveWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd, ws, "%s (%s)", ws.Name, ws.ID)
		}),
	}
}
