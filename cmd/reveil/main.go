package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
