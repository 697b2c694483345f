// Package main is the entry point for the davstore CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davstore/davstore/internal/cli"
	buildversion "github.com/davstore/davstore/internal/version"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if version == "dev" {
		version = buildversion.Get()
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// A signal cancels the context; a transaction waiting on its hook
	// then terminates the hook's process group before unwinding. A
	// second signal forces exit.
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
		cancel()

		sig = <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived second signal %v, forcing exit\n", sig)
		os.Exit(1)
	}()

	cli.SetVersionInfo(version, commit, date)

	if err := cli.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Operation canceled")
			os.Exit(130)
		}
		// Print the error since SilenceErrors is enabled in cobra
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
