package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kroma-labs/smoelen/cmd/smoelen/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewSmoelenCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
