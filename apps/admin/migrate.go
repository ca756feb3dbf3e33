package main

import (
	"fmt"

	"github.com/trezcool/goose"

	appfs "github.com/trezcool/shule/fs"
)

// mockable
var (
	gooseUpFunc      = goose.Up
	gooseUpByOneFunc = goose.UpByOne
	gooseDownFunc    = goose.Down
	gooseRedoFunc    = goose.Redo
)

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	db := cli.db.DB
	switch command {
	case "up":
		return gooseUpFunc(db, appfs.FS, "migrations")
	case "up-by-one":
		return gooseUpByOneFunc(db, appfs.FS, "migrations")
	case "down":
		return gooseDownFunc(db, appfs.FS, "migrations")
	case "redo":
		return gooseRedoFunc(db, appfs.FS, "migrations")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
