package main

import (
	"fmt"
	"os"

	"steelpos/internal"
	"steelpos/internal/cli"
)

func main() {
	if err := internal.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ "+cli.FriendlyError(err))
		os.Exit(1)
	}
}
