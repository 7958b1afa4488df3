package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mediahub/mediahub/internal"
	"github.com/mediahub/mediahub/internal/db"
	"github.com/mediahub/mediahub/internal/db/migrate"
	"github.com/mediahub/mediahub/migrations"
)

const helpText = `Usage: dbmigrate [-dry-run] sqlite_file`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dbmigrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dryRun := fs.Bool("dry-run", false, "only list the pending migrations")

	err := fs.Parse(args)
	if err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	dbFile := fs.Arg(0)

	sqlDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	if *dryRun {
		pending, err := migrate.Pending(ctx, sqlDB, migrations.FS)
		if err != nil {
			fmt.Fprintf(stderr, "failed to list pending migrations: %v\n", err)
			return 1
		}

		for _, name := range pending {
			fmt.Fprintf(stdout, "pending: %s\n", name)
		}
		return 0
	}

	meta := migrate.Metadata{
		AppVersion: internal.Version(),
		Timestamp:  time.Now().UTC(),
	}

	applied, err := migrate.RunFS(ctx, sqlDB, migrations.FS, meta)
	if err != nil {
		fmt.Fprintf(stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	for _, m := range applied {
		fmt.Fprintf(stdout, "%d: %s\n", m.Sequence, m.Filename)
	}

	return 0
}
