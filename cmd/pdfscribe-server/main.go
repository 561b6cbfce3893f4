// Command pdfscribe-server serves the PDF editor API for browsers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfscribe/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, bootstrap.Options{})
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	errs := make(chan error, 1)
	go func() {
		errs <- services.Server.Listen(services.Config.Server.Addr)
	}()

	select {
	case err := <-errs:
		if err != nil {
			services.Logger.Error("server stopped", "error", err)
			services.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		services.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := services.Server.Shutdown(shutdownCtx); err != nil {
			services.Logger.Warn("shutdown incomplete", "error", err)
		}
	}
}
