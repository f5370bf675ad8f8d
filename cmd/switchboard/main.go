// Package main is the entry point for the switchboard command.
package main

import (
	"os"

	"github.com/dshills/switchboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
