package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/anime-relay/internal/platform/run"
	"github.com/example/anime-relay/services/player/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	run.Exit(code)
}
