package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore/snapshot"
	"github.com/jrsteele09/go-clinic-portal/internal/config"
	"github.com/jrsteele09/go-clinic-portal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	snapshots, err := newSnapshotRepo(c)
	if err != nil {
		return err
	}
	api, err := apiclient.New(c.GetBackendURL(), apiclient.WithTimeout(c.GetBackendTimeout()))
	if err != nil {
		return fmt.Errorf("apiclient.New: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler, err := server.New(ctx, c, api, snapshots)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func newSnapshotRepo(c config.Config) (snapshot.Repo, error) {
	switch c.GetSnapshotStore() {
	case "file":
		repo, err := snapshot.NewFileRepo(c.GetDataFolder(), c.GetSnapshotKey())
		if err != nil {
			return nil, fmt.Errorf("snapshot.NewFileRepo: %w", err)
		}
		log.Info().Str("folder", c.GetDataFolder()).Msg("Auth snapshots stored on disk")
		return repo, nil
	case "memory", "":
		return snapshot.NewInMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_STORE %q", c.GetSnapshotStore())
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
