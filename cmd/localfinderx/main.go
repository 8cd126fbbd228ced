// Package main provides the entry point for the localfinderx CLI.
package main

import (
	"os"

	"github.com/localfinderx/localfinderx/cmd/localfinderx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
