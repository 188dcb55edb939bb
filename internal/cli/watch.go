package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ticklist/internal/feed"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <list>",
		Short: "Follow a list live, reprinting as edits arrive",
		Long: `Follow a list live. Edits made anywhere, including this terminal's
own other sessions, stream in over the change feed and the tree is
reprinted after each one. Interrupt to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := app.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.close()

			sub, err := app.subscribe(ctx, s, args[0])
			if err != nil {
				return err
			}
			defer sub.Close()

			go s.engine.Run(ctx, sub.Events())

			out := cmd.OutOrStdout()
			printList(out, s.engine)

			pings, cancelWatch := s.engine.Watch()
			defer cancelWatch()
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-pings:
					if !ok {
						return nil
					}
					fmt.Fprintln(out)
					printList(out, s.engine)
				}
			}
		},
	}
}

// subscribe picks the change-feed transport: the relay websocket when
// one is configured, otherwise Redis directly.
func (a *App) subscribe(ctx context.Context, s *session, listID string) (*feed.Subscription, error) {
	if a.cfg.RelayURL != "" {
		return feed.DialRelay(ctx, a.cfg.RelayURL, listID)
	}
	if s.feed != nil {
		return s.feed.Subscribe(ctx, listID)
	}
	return nil, fmt.Errorf("watch needs REDIS_URL or TICKLIST_RELAY_URL")
}
