// crackgo CLI - batched GraphQL credential and rate-limit testing
package main

import (
	"os"

	"Crackgo/internal/cli"
)

// main is the entry point of the crackgo application.
// Errors are already logged by the command; only the exit code is left to set.
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
