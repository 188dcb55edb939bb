package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var under string

	cmd := &cobra.Command{
		Use:   "add <list> <content>...",
		Short: "Add rows to a list",
		Long: `Add rows to a list. Each argument becomes one row, classified by
its text: "# Dairy" makes a header, "note: back at 6" makes a note,
anything else is a task. New rows land at the top of the list, or at
the top of a group when --under names a header.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			var parent *string
			if under != "" {
				parent = &under
			}
			added, err := s.engine.Add(cmd.Context(), parent, args[1:]...)
			if err != nil {
				return err
			}
			for _, it := range added {
				fmt.Fprintln(cmd.OutOrStdout(), it.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&under, "under", "", "header id to add the rows beneath")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <list> <item> <content>",
		Short: "Rewrite a row's text",
		Long: `Rewrite a row's text. The new text is classified the same way add
classifies it, so editing "Milk" into "# Dairy" turns the task into a
header.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Edit(cmd.Context(), args[1], args[2])
		},
	}
}

func newCheckCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "check <list> [item]...",
		Short: "Mark tasks complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("check needs a list id")
			}
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			if all {
				return s.engine.CompleteAll(cmd.Context())
			}
			if len(args) < 2 {
				return fmt.Errorf("check needs item ids or --all")
			}
			for _, id := range args[1:] {
				it, ok := findItem(s.engine, id)
				if !ok {
					return fmt.Errorf("item %s not found", id)
				}
				if it.Completed {
					continue
				}
				if err := s.engine.Toggle(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "complete every open task")
	return cmd
}

func newUncheckCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "uncheck <list> [item]...",
		Short: "Mark tasks open again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("uncheck needs a list id")
			}
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			if all {
				return s.engine.UncompleteAll(cmd.Context())
			}
			if len(args) < 2 {
				return fmt.Errorf("uncheck needs item ids or --all")
			}
			for _, id := range args[1:] {
				it, ok := findItem(s.engine, id)
				if !ok {
					return fmt.Errorf("item %s not found", id)
				}
				if !it.Completed {
					continue
				}
				if err := s.engine.Toggle(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reopen every completed task")
	return cmd
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <list> <item>...",
		Short: "Delete rows from a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			for _, id := range args[1:] {
				if err := s.engine.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <list>",
		Short: "Delete every completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.ClearCompleted(cmd.Context())
		},
	}
}
