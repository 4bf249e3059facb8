// Command grant-admin marks an existing profile as an approved admin. Use it
// once to bootstrap the first admin; after that admins manage each other
// through the admin pages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
)

var (
	email   = flag.String("email", "", "Email of the registered user to promote (required)")
	dsn     = flag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	revoke  = flag.Bool("revoke", false, "Remove admin instead of granting it")
	dryRun  = flag.Bool("dry-run", false, "Show the profile that would change; no DB writes")
	confirm = flag.Bool("confirm", false, "Required to write the change")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	if *dsn == "" {
		return errors.New("--dsn not provided and DATABASE_URL not set")
	}
	target := cases.Fold().String(strings.TrimSpace(*email))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var (
		id, name          string
		approved, isAdmin bool
	)
	err = db.QueryRowContext(ctx,
		`SELECT id, COALESCE(display_name, ''), approved, is_admin FROM collective.profiles WHERE email = $1`,
		target,
	).Scan(&id, &name, &approved, &isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no profile registered for %s", target)
	}
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	fmt.Printf("Profile %s (%s): approved=%v admin=%v\n", id, name, approved, isAdmin)

	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return nil
	}
	if !*confirm {
		return errors.New("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	if *revoke {
		_, err = tx.ExecContext(ctx,
			`UPDATE collective.profiles SET is_admin = false, updated_at = now() WHERE id = $1`, id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE collective.profiles
			SET is_admin = true,
			    approved = true,
			    approved_at = COALESCE(approved_at, now()),
			    updated_at = now()
			WHERE id = $1`, id)
	}
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if *revoke {
		fmt.Printf("Removed admin from %s ✅\n", target)
	} else {
		fmt.Printf("%s is now an approved admin ✅\n", target)
	}
	return nil
}
