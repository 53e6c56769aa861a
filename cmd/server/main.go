// Command server runs the HTTP API in front of the recognition
// service. Fingerprint extraction happens out of process; requests
// carry pre-extracted fingerprints.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visrec/visrec/internal/config"
	"github.com/visrec/visrec/pkg/logger"
	"github.com/visrec/visrec/pkg/visrec"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("VISREC_CONFIG"), "path to TOML config file")
		bind       = flag.String("bind", "", "bind address, overrides config")
		dbPath     = flag.String("db", "", "path to sqlite database, overrides config")
	)
	flag.Parse()

	log := logger.GetLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	service, err := visrec.NewService(
		visrec.WithDBPath(cfg.DBPath),
		visrec.WithPHashThreshold(cfg.Match.PHashThreshold),
		visrec.WithCNNThreshold(cfg.Match.CNNThreshold),
		visrec.WithCandidateLimit(cfg.Match.CandidateLimit),
		visrec.WithSampleFrames(cfg.SampleFrames),
		visrec.WithLogger(log),
	)
	if err != nil {
		log.Error("creating service", "error", err)
		os.Exit(1)
	}
	defer service.Close()

	srv := newServer(service, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "bind", cfg.Server.Bind)
		if err := srv.echo.Start(cfg.Server.Bind); err != nil {
			log.Info("server stopped", "reason", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
