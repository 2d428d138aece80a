package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flowsentry/internal/alerter"
	"flowsentry/internal/bundle"
	"flowsentry/internal/config"
	"flowsentry/internal/model"
	"flowsentry/internal/notification"
	"flowsentry/internal/pipeline"
	"flowsentry/internal/report"
	"flowsentry/internal/source"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting fs-engine...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Engine.Mode != "live" {
		log.Fatalf("fs-engine runs the live pipeline; config mode is %q (use fs-batch for batch mode).", cfg.Engine.Mode)
	}
	log.Println("Configuration loaded successfully.")

	b, err := bundle.Load(cfg.Bundle.Path)
	if err != nil {
		log.Fatalf("Failed to load model bundle: %v", err)
	}
	log.Printf("Model bundle loaded: %d scaler features, %d selected, %d classes.",
		b.Schema().NumScalerFeatures(), b.Schema().NumSelectedFeatures(), len(b.Labels()))

	src, err := source.NewLiveSource(cfg.Source.Live)
	if err != nil {
		log.Fatalf("Failed to create live flow source: %v", err)
	}
	defer src.Close()

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

	var alertr *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" {
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		}
		if notifier != nil {
			alertr, err = alerter.NewAlerter(&cfg.Alerter, p.Aggregator(), notifier)
			if err != nil {
				log.Fatalf("Failed to create alerter: %v", err)
			}
			go alertr.Start()
			log.Println("Alerter enabled and initialized.")
		} else {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, draining pipeline...")
		cancel()
	}()

	if err := p.Run(ctx); err != nil {
		if alertr != nil {
			alertr.Stop()
		}
		log.Fatalf("Pipeline terminated: %v", err)
	}

	if alertr != nil {
		alertr.Stop()
	}
	log.Println("Shutdown complete.")
}
