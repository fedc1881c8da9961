package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desktopathlete/athlete/internal/api/v1/handlers"
	"github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/services"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Setup(nil)

	svc, err := services.InitializeServices()
	if err != nil {
		logger.Fatal(logger.APP, "Failed to initialize services: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error(logger.APP, "Failed to close services: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := newServer(":"+config.GetPort(), svc)
	if err := run(ctx, server); err != nil {
		logger.Error(logger.APP, "Server error: %v", err)
		os.Exit(1)
	}
}

func setupRouter(svc *services.Services) http.Handler {
	r := mux.NewRouter()
	handlers.RegisterV1Routes(r, svc)
	return middleware.RequestLogger(r)
}

func newServer(addr string, svc *services.Services) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           setupRouter(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// run serves until ctx is done, then drains in-flight requests
func run(ctx context.Context, server *http.Server) error {
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, server, listener)
}

func serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(logger.APP, "Server starting on %s", listener.Addr())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info(logger.APP, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
