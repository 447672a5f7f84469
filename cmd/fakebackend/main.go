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
	"github.com/rs/zerolog/log"

	"github.com/bikepark/parkclient/internal/backendfake"
	"github.com/bikepark/parkclient/internal/config"
	"github.com/bikepark/parkclient/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running fake backend")
	}
	log.Info().Msg("Fake backend stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(".env")
	if err != nil {
		return err
	}
	logger := logging.Init(c.GetLogLevel(), c.GetLogFormat())
	displayAppname(c.GetAppName() + " backend")

	backend := backendfake.New(
		backendfake.WithLogger(logger),
		backendfake.WithColour(c.GetLogFormat() != "json"),
	)
	backend.AddAccount(demoAccount())

	server := &http.Server{
		Addr:              c.GetFakeBackendPort(),
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(server)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func demoAccount() backendfake.Account {
	return backendfake.Account{
		Phone:    config.GetEnv("DEMO_PHONE", "9999999999"),
		Password: config.GetEnv("DEMO_PASSWORD", "secret"),
		Name:     "Demo Rider",
		Balance:  config.GetEnvFloat("DEMO_BALANCE", 45.5),
		Cycles: []backendfake.Cycle{
			{ID: "c1", Zone: "Z3"},
			{ID: "c2", Zone: ""},
			{ID: "c3", Zone: "offline"},
		},
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Str("base_path", backendfake.BasePath).Msg("Fake backend listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
