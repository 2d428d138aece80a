package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"flowsentry/internal/align"
	"flowsentry/internal/bundle"
	"flowsentry/internal/classify"
	"flowsentry/internal/config"
	"flowsentry/internal/query"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	b, err := bundle.Load(cfg.Bundle.Path)
	if err != nil {
		log.Fatalf("Failed to load model bundle: %v", err)
	}

	querier, err := query.NewClickHouseQuerier(cfg.API.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	apiHandler := &APIHandler{
		querier:    querier,
		aligner:    align.New(b),
		classifier: classify.New(b),
		evaluator: classify.NewEvaluator(cfg.Engine.BenignLabel,
			cfg.Engine.Thresholds.HighConfidence, cfg.Engine.Thresholds.Watch),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/classify", apiHandler.classifyHandler).Methods("POST")
	r.HandleFunc("/api/v1/threats/summary", apiHandler.threatSummaryHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server stopped.")
}
