package main

import (
	"os"

	"github.com/hyowon/folio/cmd/folio/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
