package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/monadwatch/cmd"
	"github.com/tphakala/monadwatch/internal/conf"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := &conf.Settings{}
	if err := cmd.RootCommand(settings).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
