package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func newDepartmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "department",
		Aliases: []string{"dept"},
		Short:   "Manage departments in the active workspace",
	}
	cmd.AddCommand(
		newDepartmentListCmd(),
		newDepartmentAddCmd(),
		newDepartmentRenameCmd(),
		newDepartmentMoveCmd(),
		newDepartmentResizeCmd(),
		newDepartmentDeleteCmd(),
	)
	return cmd
}

func newDepartmentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List departments with their headcount",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			list, err := a.svc.ListDepartmentsWithPeople(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tPOSITION\tSIZE\tPEOPLE")
				for _, d := range list {
					fmt.Fprintf(w, "%s\t%s\t%g,%g\t%gx%g\t%d\n", d.ID, d.Name,
						d.Position.X, d.Position.Y, d.Size.Width, d.Size.Height, d.PersonCount)
				}
			})
		}),
	}
}

func newDepartmentAddCmd() *cobra.Command {
	var x, y float64
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a department",
		Long:  "Add a department. Without a name it is called " + types.DefaultDepartmentName + ".",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			var at *types.Position
			if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
				at = &types.Position{X: x, Y: y}
			}
			d, err := a.svc.CreateDepartment(cmd.Context(), name, at)
			if err != nil {
				return err
			}
			return report(cmd, d, "Added department %s (%s)", d.Name, d.ID)
		}),
	}
	cmd.Flags().Float64Var(&x, "x", types.DefaultDepartmentX, "canvas x coordinate")
	cmd.Flags().Float64Var(&y, "y", types.DefaultDepartmentY, "canvas y coordinate")
	return cmd
}

func newDepartmentRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a department",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			d, err := a.svc.RenameDepartment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return report(cmd, d, "Renamed department %s to %s", d.ID, d.Name)
		}),
	}
}

func newDepartmentMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Move a department on the canvas",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			xy, err := parseFloats(args[1], args[2])
			if err != nil {
				return err
			}
			d, err := a.svc.MoveDepartment(cmd.Context(), args[0], xy[0], xy[1])
			if err != nil {
				return err
			}
			return report(cmd, d, "Moved %s to %g,%g", d.Name, d.Position.X, d.Position.Y)
		}),
	}
}

func newDepartmentResizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <id> <width> <height>",
		Short: "Resize a department",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			wh, err := parseFloats(args[1], args[2])
			if err != nil {
				return err
			}
			d, err := a.svc.ResizeDepartment(cmd.Context(), args[0], wh[0], wh[1])
			if err != nil {
				return err
			}
			return report(cmd, d, "Resized %s to %gx%g", d.Name, d.Size.Width, d.Size.Height)
		}),
	}
}

func newDepartmentDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a department and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			d, err := a.svc.GetDepartment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete department %q? Its people stay in the workspace.", d.Name))
			if err != nil || !ok {
				return err
			}
			if err := a.svc.DeleteDepartment(cmd.Context(), d.ID); err != nil {
				return err
			}
			return report(cmd, d, "Deleted department %s", d.Name)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
