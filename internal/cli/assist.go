package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticklist/internal/assist"
)

func (a *App) assistClient() (*assist.Client, error) {
	if a.cfg.AssistURL == "" {
		return nil, fmt.Errorf("assist needs ASSIST_URL")
	}
	return assist.New(a.cfg.AssistURL), nil
}

func newAssistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assist",
		Short: "Fill or reorganize a list with the AI service",
	}
	cmd.AddCommand(newAssistGenerateCmd(app))
	cmd.AddCommand(newAssistCategorizeCmd(app))
	cmd.AddCommand(newAssistThemeCmd(app))
	return cmd
}

func newAssistGenerateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <list> <prompt>",
		Short: "Generate tasks from a prompt and add them to the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.assistClient()
			if err != nil {
				return err
			}
			contents, err := client.Generate(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if len(contents) == 0 {
				return fmt.Errorf("the service came back empty")
			}

			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.engine.Add(cmd.Context(), nil, contents...); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), s.engine)
			return nil
		},
	}
}

func newAssistCategorizeCmd(app *App) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "categorize <list>",
		Short: "Group the list's rows under generated headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.assistClient()
			if err != nil {
				return err
			}

			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			rows, err := client.Categorize(cmd.Context(), instruction, s.engine.Items())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("the service came back empty")
			}
			if err := s.engine.InsertGenerated(cmd.Context(), rows); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), s.engine)
			return nil
		},
	}
	cmd.Flags().StringVar(&instruction, "instruction", "", "hint for how to group, e.g. \"by store aisle\"")
	return cmd
}

func newAssistThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "theme <list> <description>",
		Short: "Pick a theme color from a description and apply it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.assistClient()
			if err != nil {
				return err
			}
			color, err := client.Theme(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.engine.SetTheme(cmd.Context(), color); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color)
			return nil
		},
	}
}
