package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flowsentry/internal/bundle"
	"flowsentry/internal/config"
	"flowsentry/internal/pipeline"
	"flowsentry/internal/report"
	"flowsentry/internal/source"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	recordsPath := flag.String("records", "", "Path to a stored flow records CSV (overrides config).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Engine.Mode != "batch" {
		log.Fatalf("fs-batch runs the batch pipeline; config mode is %q (use fs-engine for live mode).", cfg.Engine.Mode)
	}
	log.Println("Configuration loaded successfully.")

	path := cfg.Source.Batch.Path
	if *recordsPath != "" {
		path = *recordsPath
	}

	b, err := bundle.Load(cfg.Bundle.Path)
	if err != nil {
		log.Fatalf("Failed to load model bundle: %v", err)
	}
	log.Printf("Model bundle loaded: %d scaler features, %d selected, %d classes.",
		b.Schema().NumScalerFeatures(), b.Schema().NumSelectedFeatures(), len(b.Labels()))

	src, err := source.NewBatchSource(path)
	if err != nil {
		log.Fatalf("Failed to open batch records: %v", err)
	}
	defer src.Close()
	log.Printf("Classifying flow records from '%s'...", path)

	writers := report.NewWriters(cfg.Report)
	defer func() {
		for _, w := range writers {
			w.Close()
		}
	}()

	p, err := pipeline.New(cfg.Engine, b, src, writers)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Interrupt received, draining pipeline...")
		cancel()
	}()

	if err := p.Run(ctx); err != nil {
		log.Fatalf("Pipeline terminated: %v", err)
	}
	log.Println("Batch classification complete.")
}
