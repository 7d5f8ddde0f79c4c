package main

import (
	"os"

	"github.com/conduit-lang/mapper/internal/cli/commands"
	"github.com/conduit-lang/mapper/internal/orm/migrate"
)

func main() {
	// Applications register their migrations on migrate.Default from init
	// functions and build their own binary around commands.Execute.
	if err := commands.Execute(commands.Options{Set: migrate.Default}); err != nil {
		os.Exit(1)
	}
}
