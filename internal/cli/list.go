package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"ticklist/internal/recents"
)

func newCreateCmd(app *App) *cobra.Command {
	var title string
	var theme string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new list and print its shareable id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := st.CreateList(cmd.Context(), title, theme)
			if err != nil {
				return err
			}

			if rec, err := recents.Open(app.cfg.RecentsPath); err == nil {
				if err := rec.Touch(cmd.Context(), list.ID, list.Title, list.Theme); err != nil {
					log.Printf("recents: %v", err)
				}
				rec.Close()
			}

			fmt.Fprintln(cmd.OutOrStdout(), list.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "list title")
	cmd.Flags().StringVar(&theme, "theme", "", "theme color, e.g. #b5e3d8")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <list>",
		Short: "Print a list as an indented tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			printList(cmd.OutOrStdout(), s.engine)
			return nil
		},
	}
}

func newTitleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "title <list> <title>",
		Short: "Rename a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.SetTitle(cmd.Context(), args[1])
		},
	}
}

func newThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "theme <list> <color>",
		Short: "Set a list's theme color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.SetTheme(cmd.Context(), args[1])
		},
	}
}

func newNukeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "nuke <list>",
		Short: "Delete every item on a list, keeping the list itself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			return s.engine.Nuke(cmd.Context())
		},
	}
}

func newDropCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <list>",
		Short: "Delete a list and everything on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := st.DeleteList(cmd.Context(), args[0]); err != nil {
				return err
			}

			if rec, err := recents.Open(app.cfg.RecentsPath); err == nil {
				if err := rec.Forget(cmd.Context(), args[0]); err != nil {
					log.Printf("recents: %v", err)
				}
				rec.Close()
			}
			return nil
		},
	}
}
