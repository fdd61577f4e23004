// Package main is the entry point for the appprofile command.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/appprofile/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
