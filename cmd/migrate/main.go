package main

import (
	"flag"
	"log"
	"os"

	"ai-chat-be/internal/config"
	"ai-chat-be/migrations"
	"ai-chat-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if cfg.Database.Connection == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	direction := "up"
	if *down {
		direction = "down"
	}
	color.Cyan("Running %s migrations...", direction)

	res, err := database.RunMigrations(cfg.Database.Connection, migrations.FS, *down)
	if err != nil {
		color.Red("Migration failed: %v", err)
		os.Exit(1)
	}

	if !res.Changed {
		color.Yellow("No change. Schema at version %d", res.Version)
		return
	}
	if res.Dirty {
		color.Red("Schema at version %d is dirty, fix it manually", res.Version)
		os.Exit(1)
	}
	color.Green("Success: schema at version %d", res.Version)
}
