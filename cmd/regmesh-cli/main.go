// Package main provides the entry point for regmesh-cli.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/regmesh-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
