// Package main provides the entry point for the buddyx CLI.
package main

import (
	"fmt"
	"os"

	"github.com/0xfe/buddyx/cmd/buddyx/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
