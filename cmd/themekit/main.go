// Package main provides the themekit CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/leapstack-labs/themekit/internal/cli"
)

func main() {
	// A .env next to the theme may hold THEMEKIT_ overrides such as the GitHub token.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
