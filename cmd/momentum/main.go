package main

import (
	"os"

	"github.com/wonny/aegis-momentum/cmd/momentum/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
