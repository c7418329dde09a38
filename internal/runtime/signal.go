package runtime

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context canceled on SIGINT or SIGTERM so the
// server can drain in-flight requests. A second signal skips the drain and
// exits immediately.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig, ok := <-ch
		if !ok {
			return
		}
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
		if sig, ok = <-ch; ok {
			logger.Warn("second signal, exiting without drain", "signal", sig.String())
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(ch)
		close(ch)
		cancel()
	}
}
