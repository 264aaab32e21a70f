// cmd/dealctl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"deal-analyzer-client/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cli.Options{}, os.Args[1:], os.Stdout); err != nil {
		stop()
		os.Exit(1)
	}
}
