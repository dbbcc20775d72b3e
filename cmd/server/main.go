// Command server runs the engagements HTTP API.
//
// Configuration comes from CONFIG_PATH (YAML) plus environment overrides;
// see internal/config. The server applies database migrations on startup.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/guildworks/engagements/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
