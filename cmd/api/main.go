package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"verenigingsloket.org/internal/audit"
	"verenigingsloket.org/internal/auth"
	"verenigingsloket.org/internal/config"
	"verenigingsloket.org/internal/export"
	"verenigingsloket.org/internal/httpapi"
	"verenigingsloket.org/internal/job"
	"verenigingsloket.org/internal/obs"
	"verenigingsloket.org/internal/registry"
	"verenigingsloket.org/internal/schedule"
	"verenigingsloket.org/internal/store/sparql"
	"verenigingsloket.org/internal/stream"
	"verenigingsloket.org/internal/token"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Postgres carries the data-access log; /readyz pings it.
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	records := sparql.NewStore(sparql.NewClient(cfg.Store.SPARQLEndpoint), cfg.Store.SourceGraph)

	var source export.RepresentativeSource
	if cfg.Registry.EnableAPISourcing {
		provider, err := newTokenProvider(cfg)
		if err != nil {
			log.Fatalf("token provider: %v", err)
		}
		client := registry.NewClient(
			cfg.Registry.Base, cfg.Registry.Version, cfg.Registry.ConcurrentRequests,
			token.NewCache(provider), cfg.Token.ClientID,
		)
		source = client
	}

	assembler := export.NewAssembler(records, source, export.NewXLSXWriter(), cfg.Export.ChunkSize)

	var recorder audit.Recorder
	if db != nil {
		recorder = audit.NewPGStore(db)
	}
	gate := auth.NewGate(records, recorder, cfg.Export.EnableRequestReasonCheck)

	events := stream.New()
	artifacts := job.NewFileStore(cfg.Export.ShareFolder)
	jobs := job.NewStore()
	runner := job.NewRunner(jobs, records, assembler, artifacts, events)

	var scheduler *schedule.Scheduler
	if cfg.Jobs.ScheduleEnabled {
		scheduler = schedule.New(records, assembler, artifacts, jobs, artifacts,
			cfg.Jobs.ScheduleHourUTC, cfg.Jobs.RetentionAge)
		scheduler.Start()
	}

	api := httpapi.New(gate, runner, assembler, events, httpapi.ReadyProbe{DB: db}, httpapi.Options{
		Version:        version,
		DebugEndpoints: cfg.Server.DebugEndpoints,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting verenigingsloket-export %s on %s (environment %s)", version, srv.Addr, cfg.Environment)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if scheduler != nil {
		scheduler.Stop()
	}
	runner.Drain()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// newTokenProvider selects the credential flow: production signs a JWT
// assertion with the mounted key, everything else exchanges the shared
// secret.
func newTokenProvider(cfg config.Config) (token.Provider, error) {
	if cfg.Environment == "PROD" {
		return token.NewAssertionProvider(cfg.Token.AuthDomain, cfg.Token.Audience, cfg.Token.Scope, cfg.Token.KeyDir)
	}
	return token.NewSharedSecretProvider(cfg.Token.Audience, cfg.Token.Scope, cfg.Token.AuthorizationKey)
}
