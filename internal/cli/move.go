package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newMoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Rearrange rows",
	}
	cmd.AddCommand(newMoveReorderCmd(app))
	cmd.AddCommand(newMoveGroupCmd(app))
	cmd.AddCommand(newMoveRootCmd(app))
	cmd.AddCommand(newMoveIndentCmd(app))
	cmd.AddCommand(newMoveOutdentCmd(app))
	return cmd
}

func newMoveReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <list> <item> <index>",
		Short: "Move a row to a new slot among its siblings",
		Long: `Move a row to a new slot among its siblings. Headers drag their
whole group with them. The index counts that row's siblings from the
top, starting at zero.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return err
			}
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Reorder(cmd.Context(), args[1], index)
		},
	}
}

func newMoveGroupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "group <list> <item> <header>",
		Short: "Move a row to the end of a header's group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.MoveToGroup(cmd.Context(), args[1], args[2])
		},
	}
}

func newMoveRootCmd(app *App) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "root <list> <item>",
		Short: "Move a row out of its group to the top level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			var target *int
			if at >= 0 {
				target = &at
			}
			return s.engine.MoveToRoot(cmd.Context(), args[1], target)
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "root slot to land in; omit for the end")
	return cmd
}

func newMoveIndentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "indent <list> <item>",
		Short: "Tuck a row under the row right above it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Indent(cmd.Context(), args[1])
		},
	}
}

func newMoveOutdentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "outdent <list> <item>",
		Short: "Lift a row out of its group, keeping its visual spot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Outdent(cmd.Context(), args[1])
		},
	}
}

func newSortCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sort <list>",
		Short: "Sort rows alphabetically",
		Long: `Sort rows alphabetically. By default each group sorts internally
and the root order stays put; --all also sorts the root rows, headers
included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Sort(cmd.Context(), all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "sort root rows too")
	return cmd
}

func newUngroupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ungroup <list>",
		Short: "Flatten every group, deleting the headers",
		Long: `Flatten every group. Children move to the root right where their
group sat, so the visual order survives; the headers themselves are
deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.UngroupAll(cmd.Context())
		},
	}
}
