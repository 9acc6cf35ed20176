// Command litedb runs SQL against an embedded SQLite database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/litedb/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Ctrl-C cancels the running statement through its context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, version, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
