// Package cli wires the sync engine, stores and feed into the ticklist
// command set. Every command is one-shot except watch, which keeps an
// engine reconciling until interrupted.
package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ticklist/db"
	"ticklist/internal/config"
	"ticklist/internal/engine"
	"ticklist/internal/feed"
	"ticklist/internal/item"
	"ticklist/internal/recents"
	"ticklist/internal/store"
	"ticklist/internal/tree"
)

type App struct {
	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{cfg: config.Load()}

	cmd := &cobra.Command{
		Use:          "ticklist",
		Short:        "Shared realtime checklists from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a list; the printed id is the thing you share
  ticklist create --title "Groceries"

  # Add rows: plain tasks, "# " headers, "note: " notes
  ticklist add lst_4af1 "Milk" "# Dairy" "note: back gate code 4711"

  # Tick something off
  ticklist check lst_4af1 itm_9be2

  # Follow remote edits live
  ticklist watch lst_4af1
`),
	}

	cmd.AddCommand(newCreateCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newTitleCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newDropCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newUncheckCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newNukeCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newSortCmd(app))
	cmd.AddCommand(newUngroupCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newRecentCmd(app))
	cmd.AddCommand(newAssistCmd(app))
	return cmd
}

// session is everything a command working on one list needs. The feed
// and recents handles may be nil; both are conveniences, not
// requirements.
type session struct {
	engine  *engine.Engine
	feed    *feed.RedisFeed
	recents *recents.Store
	close   func()
}

// migrationsFS picks the schema source: an operator-supplied directory
// when TICKLIST_MIGRATIONS_DIR is set, otherwise the copy embedded in
// the binary.
func (a *App) migrationsFS() fs.FS {
	if a.cfg.MigrationsDir != "" {
		return os.DirFS(a.cfg.MigrationsDir)
	}
	return db.Migrations()
}

// openStore connects to Postgres, brings the schema up to date, and
// attaches the Redis feed when it is reachable. Without Redis, writes
// still land; they just go unannounced.
func (a *App) openStore(ctx context.Context) (*store.PostgresStore, *feed.RedisFeed, func(), error) {
	conn, err := store.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.ApplyMigrations(ctx, conn, a.migrationsFS()); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}

	redisFeed, err := feed.NewRedisFeed(a.cfg.RedisURL)
	if err != nil {
		log.Printf("feed disabled: %v", err)
		redisFeed = nil
	}
	var publisher feed.Publisher
	if redisFeed != nil {
		publisher = redisFeed
	}

	cleanup := func() {
		if redisFeed != nil {
			redisFeed.Close()
		}
		conn.Close()
	}
	return store.NewPostgresStore(conn, publisher), redisFeed, cleanup, nil
}

// openSession loads one list into an engine and records the visit in
// the on-device history.
func (a *App) openSession(ctx context.Context, listID string) (*session, error) {
	st, redisFeed, cleanup, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	e := engine.New(listID, st, a.cfg.CompleteDebounce)
	if err := e.Load(ctx); err != nil {
		cleanup()
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("list %s not found", listID)
		}
		return nil, err
	}

	rec, err := recents.Open(a.cfg.RecentsPath)
	if err != nil {
		log.Printf("recents disabled: %v", err)
		rec = nil
	}
	if rec != nil {
		list := e.List()
		if err := rec.Touch(ctx, listID, list.Title, list.Theme); err != nil {
			log.Printf("recents: %v", err)
		}
	}

	s := &session{engine: e, feed: redisFeed, recents: rec}
	s.close = func() {
		e.Close()
		if rec != nil {
			rec.Close()
		}
		cleanup()
	}
	return s, nil
}

func findItem(e *engine.Engine, id string) (item.Item, bool) {
	for _, it := range e.Items() {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}

// printList renders the organized tree: headers as "#", notes as "*",
// tasks with a checkbox, each row trailed by its id for use in further
// commands.
func printList(w io.Writer, e *engine.Engine) {
	list := e.List()
	title := list.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "%s  %s\n", title, list.ID)

	roots := e.Tree()
	if len(roots) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}
	tree.Walk(roots, func(node *tree.Node, depth int) {
		indent := strings.Repeat("  ", depth+1)
		switch node.Kind {
		case item.KindHeader:
			fmt.Fprintf(w, "%s# %s  %s\n", indent, node.Content, node.ID)
		case item.KindNote:
			fmt.Fprintf(w, "%s* %s  %s\n", indent, node.Content, node.ID)
		default:
			mark := " "
			if node.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "%s[%s] %s  %s\n", indent, mark, node.Content, node.ID)
		}
	})
}
