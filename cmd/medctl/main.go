package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "medctl",
		Usage:   "Administer reference data and run the extraction workflow locally",
		Version: version,
		Commands: []*cli.Command{
			migrateCommand,
			seedCommand,
			processCommand,
			mcpCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("medctl: %v", err)
	}
}
