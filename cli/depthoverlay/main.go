// Package main is the depthoverlay command itself.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/viam-labs/depthoverlay/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		//nolint:errcheck
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
