package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext is canceled on the first SIGINT or SIGTERM, a second one
// kills the process through the default handler.
func SignalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}

// Fatal logs the message and exits with a non-zero status.
func Fatal(message string, err error) {
	attrs := []any{}
	if err != nil {
		attrs = append(attrs, "err", err.Error())
	}
	slog.Error(message, attrs...)
	os.Exit(1)
}
