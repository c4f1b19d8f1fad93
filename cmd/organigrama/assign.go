package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <person-id> <department-id>",
		Short: "Add a person to the end of a department",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			asg, err := a.svc.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return report(cmd, asg, "Assigned %s to %s at position %d", asg.PersonID, asg.DepartmentID, asg.Order)
		}),
	}
}

func newUnassignCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unassign <person-id> [department-id]",
		Short: "Remove a person from one department, or from all with --all",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if all {
				n, err := a.svc.UnassignAll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report(cmd, map[string]int{"removed": n}, "Removed %d assignments", n)
			}
			if len(args) != 2 {
				return fmt.Errorf("%w: unassign needs a department id or --all", types.ErrValidation)
			}
			if err := a.svc.Unassign(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return report(cmd, map[string]int{"removed": 1}, "Removed %s from %s", args[0], args[1])
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove the person from every department")
	return cmd
}

func newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <department-id> <person-id>...",
		Short: "Set the display order of a department's people",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.svc.Reorder(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			people, err := a.svc.PeopleByDepartment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderPeople(cmd, people)
		}),
	}
}

func newPeopleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "people <department-id>",
		Short: "List a department's people in display order",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			people, err := a.svc.PeopleByDepartment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderPeople(cmd, people)
		}),
	}
}

func renderPeople(cmd *cobra.Command, people []types.Person) error {
	return render(cmd, people, func(w io.Writer) {
		fmt.Fprintln(w, "#\tID\tNAME\tROLE")
		for i, p := range people {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, p.ID, p.Name, p.Role)
		}
	})
}
