// cmd/waymark/main.go
//
// This is the entry point for the Waymark CLI.
// Editor and agent hooks call the subcommands (commit, branch, merge,
// context); humans mostly use browse and init.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rowanvale/waymark/internal/lifecycle"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		// Validation errors already read well; everything else gets the
		// command prefix so hook logs stay greppable.
		if errors.Is(err, lifecycle.ErrValidation) {
			fmt.Fprintf(os.Stderr, "waymark: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "waymark: error: %v\n", err)
		}
		os.Exit(1)
	}
}
