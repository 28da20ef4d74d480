// Command migrate manages the message store schema.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"chatfeed/internal/storage"
	"chatfeed/migrations"
)

type command struct {
	help string
	run  func(db *sql.DB) error
}

var commands = map[string]command{
	"up":      {"migrate to the latest version", func(db *sql.DB) error { return goose.Up(db, ".") }},
	"up-one":  {"migrate one version up", func(db *sql.DB) error { return goose.UpByOne(db, ".") }},
	"down":    {"roll back one version", func(db *sql.DB) error { return goose.Down(db, ".") }},
	"status":  {"show migration status", func(db *sql.DB) error { return goose.Status(db, ".") }},
	"version": {"show current version", func(db *sql.DB) error { return goose.Version(db, ".") }},
	"reset":   {"roll back all migrations", func(db *sql.DB) error { return goose.Reset(db, ".") }},
}

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/chatfeed.db"), "path to sqlite database")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	if err := run(*dbPath, name); err != nil {
		slog.Error("migrate", "command", name, "db", *dbPath, "error", err)
		os.Exit(1)
	}
}

func run(dbPath, name string) error {
	if name == "count" {
		return count(dbPath)
	}

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return cmd.run(db)
}

// count opens the store, applying pending migrations, and prints the number of messages.
func count(dbPath string) error {
	store, err := storage.NewSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.CountMessages(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [-db path] <command>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(out, "  %-10s %s\n", "count", "print the number of stored messages")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
