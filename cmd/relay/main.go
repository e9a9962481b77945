package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nightswarm/internal/logging"
	"nightswarm/internal/relay"
	"nightswarm/internal/telemetry"
)

func main() {
	var (
		addr     string
		capacity int
		jsonLog  bool
	)
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.IntVar(&capacity, "capacity", relay.DefaultConfig().Capacity, "maximum concurrent connections")
	flag.BoolVar(&jsonLog, "json-log", false, "emit lifecycle events as JSON lines")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var publisher logging.Publisher = logging.NewConsolePublisher(os.Stdout)
	if jsonLog {
		publisher = logging.NewJSONPublisher(os.Stdout)
	}

	hub := relay.NewHub(relay.Config{Capacity: capacity}, telemetry.WrapLogger(logger), publisher)

	server := &http.Server{
		Addr:    addr,
		Handler: hub.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Printf("relay listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("relay: %v", err)
	}
}
