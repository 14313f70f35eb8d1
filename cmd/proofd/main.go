package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudokulabs/proofd/internal/api"
	"github.com/sudokulabs/proofd/internal/config"
	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/joblog"
	"github.com/sudokulabs/proofd/internal/observability"
	"github.com/sudokulabs/proofd/internal/prover"
	"github.com/sudokulabs/proofd/internal/runner"
)

func main() {
	configPath := flag.String("config", "", "Path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	log.Printf("Starting proofd node: %s", cfg.NodeID)
	log.Printf("HTTP port: %d, assets dir: %s", cfg.HTTPPort, cfg.AssetsDir)

	metrics, metricsHandler, err := observability.New()
	if err != nil {
		log.Fatalf("Metrics init error: %v", err)
	}

	registry := job.NewStore()
	trail := joblog.NewStoreWithCap(cfg.LogTrailCap)
	prv := prover.NewLocal(cfg.AssetsDir, cfg.ProveDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run := runner.New(ctx, registry, trail, prv, metrics)

	router := api.NewRouter(cfg, registry, trail, run, metrics, metricsHandler)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Waiting for running jobs...")
	run.Wait()

	log.Println("Server stopped")
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "proofd - Sudoku ZK-proof job backend\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration is read from the YAML file given with -config,\n")
		fmt.Fprintf(os.Stderr, "then overridden by environment variables (HTTP_PORT, ASSETS_DIR,\n")
		fmt.Fprintf(os.Stderr, "LOG_TRAIL_CAP, KEEPALIVE_SECONDS, POLL_SECONDS, PROVE_DELAY_SECONDS).\n")
	}
}
