// Command minutes-crawler crawls local-government websites for
// meeting-minutes documents, respecting robots.txt and resuming from an
// append-only manifest across interrupted runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kasumi-gikai/minutes-crawler/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
