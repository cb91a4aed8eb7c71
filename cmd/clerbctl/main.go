// Command clerbctl administers a clerb deployment: it applies migrations,
// seeds a running server with sample data and checks its rankings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/clerb/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
