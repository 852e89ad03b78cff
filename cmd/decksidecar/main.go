// Command decksidecar turns documents into slide decks through a remote
// notebook workspace, reporting progress as JSON lines on stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/automeetsslide/decksidecar/internal/cmd"
	"github.com/automeetsslide/decksidecar/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	os.Exit(errors.ExitCode(err))
}
