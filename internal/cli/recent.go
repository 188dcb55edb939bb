package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticklist/internal/recents"
)

func newRecentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show lists opened on this device, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recents.Open(app.cfg.RecentsPath)
			if err != nil {
				return err
			}
			defer rec.Close()

			entries, err := rec.Recent(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(nothing yet)")
				return nil
			}
			for _, e := range entries {
				title := e.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					e.ListID, e.OpenedAt.Local().Format("2006-01-02 15:04"), title)
			}
			return nil
		},
	}
	cmd.AddCommand(newRecentForgetCmd(app))
	return cmd
}

func newRecentForgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <list>",
		Short: "Drop a list from the on-device history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recents.Open(app.cfg.RecentsPath)
			if err != nil {
				return err
			}
			defer rec.Close()

			return rec.Forget(cmd.Context(), args[0])
		},
	}
}
