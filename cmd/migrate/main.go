package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MudassirSafi/Wolf-Backend/internal/boot"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	"github.com/MudassirSafi/Wolf-Backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create", nil)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name, time.Now())
		if err != nil {
			fail("failed to create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		names, err := migrate.ValidateDir(*dir)
		if err != nil {
			fail("migration validation failed", err)
		}
		fmt.Printf("migration validation passed (%d files)\n", len(names))
		return
	}

	proc, err := boot.Start("migrate")
	ctx := proc.Logger.WithFields(proc.Context(), map[string]any{"cmd": *cmd, "dir": *dir})
	if err != nil {
		proc.Fatal(ctx, "failed to load config", err)
	}
	logg := proc.Logger

	// explicit commands bypass the dev auto-migrate hook in proc.Database
	dbClient, err := db.New(ctx, proc.Config.DB, logg)
	if err != nil {
		proc.Fatal(ctx, "failed to bootstrap database", err)
	}
	proc.Track("database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		proc.Fatal(ctx, "failed to extract sql.DB", err)
	}
	migrator, err := migrate.New(sqlDB, *dir)
	if err != nil {
		proc.Fatal(ctx, "failed to build migrator", err)
	}

	var applied []migrate.AppliedMigration
	switch *cmd {
	case "up":
		applied, err = migrator.Up(ctx)
	case "down":
		applied, err = migrator.Down(ctx)
	case "version":
		if *version == "" {
			fail("missing -version for version command", nil)
		}
		applied, err = migrator.MigrateTo(ctx, *version)
	case "status":
		var states []migrate.MigrationState
		states, err = migrator.Status(ctx)
		for _, s := range states {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%-8s %d %s\n", state, s.Version, s.Path)
		}
	default:
		fail("unknown -cmd value: "+*cmd, nil)
	}
	if err != nil {
		proc.Fatal(ctx, "migration command failed", err)
	}

	for _, m := range applied {
		fmt.Printf("%s %d %s\n", m.Direction, m.Version, m.Path)
	}
	logg.Info(logg.WithField(ctx, "count", len(applied)), "migration command finished")
	proc.Shutdown(ctx)
}

func fail(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
