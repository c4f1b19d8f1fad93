package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func newPersonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage people in the active workspace",
	}
	cmd.AddCommand(
		newPersonListCmd(),
		newPersonAddCmd(),
		newPersonUpdateCmd(),
		newPersonDeleteCmd(),
	)
	return cmd
}

func newPersonListCmd() *cobra.Command {
	var unassigned bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List people with the departments they belong to",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			list, err := a.svc.ListPersonsWithDepartments(cmd.Context())
			if err != nil {
				return err
			}
			if unassigned {
				kept := list[:0]
				for _, p := range list {
					if !p.IsAssigned {
						kept = append(kept, p)
					}
				}
				list = kept
			}
			return render(cmd, list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tROLE\tDEPARTMENTS")
				for _, p := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Role, len(p.DepartmentIDs))
				}
			})
		}),
	}
	cmd.Flags().BoolVar(&unassigned, "unassigned", false, "only people in no department")
	return cmd
}

func newPersonAddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a person",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			p, err := a.svc.CreatePerson(cmd.Context(), args[0], role)
			if err != nil {
				return err
			}
			return report(cmd, p, "Added %s (%s)", p.Name, p.ID)
		}),
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "role or job title")
	return cmd
}

func newPersonUpdateCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a person's name or role",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var upd types.PersonUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("role") {
				upd.Role = &role
			}
			p, err := a.svc.UpdatePerson(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			return report(cmd, p, "Updated %s (%s)", p.Name, p.ID)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	return cmd
}

func newPersonDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a person and their assignments",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			p, err := a.svc.GetPerson(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete %s and remove them from every department?", p.Name))
			if err != nil || !ok {
				return err
			}
			if err := a.svc.DeletePerson(cmd.Context(), p.ID); err != nil {
				return err
			}
			return report(cmd, p, "Deleted %s", p.Name)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
