// Package main is the dbview command.
package main

import (
	"os"

	"github.com/leapstack-labs/dbview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
