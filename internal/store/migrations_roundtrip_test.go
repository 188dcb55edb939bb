package store

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ticklist/db"
)

// The round trip proves the embedded schema can build a fresh database
// and rebuild it after the down files have run.
func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TICKLIST_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TICKLIST_TEST_DATABASE_URL is not set")
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	if err := resetPublicSchema(ctx, conn); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	fsys := db.Migrations()

	if err := ApplyMigrations(ctx, conn, fsys); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}

	if err := applyDownMigrations(ctx, conn, fsys); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}

	if err := ApplyMigrations(ctx, conn, fsys); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func resetPublicSchema(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

// applyDownMigrations unwinds the schema newest-first. The zero-padded
// NNNN_ prefixes make reverse lexical order the reverse apply order.
func applyDownMigrations(ctx context.Context, conn *sql.DB, fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.down.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		sqlBytes, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, sqlText); err != nil {
			return err
		}
	}

	return nil
}
