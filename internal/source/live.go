package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
	"flowsentry/internal/probe"
)

// LiveSource reads flow records from a NATS subject as the capture probe
// publishes them. The subscription is drained with a bounded wait so a
// cancellation is observed within one poll interval; read failures are
// retried with backoff up to a bounded attempt count and then escalated as
// a fatal SourceError. Live sources are not restartable.
type LiveSource struct {
	nc           *nats.Conn
	sub          *nats.Subscription
	pollInterval time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

// NewLiveSource connects to NATS and subscribes to the configured subject.
func NewLiveSource(cfg config.LiveSourceConfig) (*LiveSource, error) {
	pollInterval, err := time.ParseDuration(cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid live source poll_interval: %w", err)
	}

	retryBackoff := time.Second
	if cfg.RetryBackoff != "" {
		retryBackoff, err = time.ParseDuration(cfg.RetryBackoff)
		if err != nil {
			return nil, fmt.Errorf("invalid live source retry_backoff: %w", err)
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.MaxReconnects(maxRetries),
		nats.ReconnectWait(retryBackoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)

	sub, err := nc.SubscribeSync(cfg.Subject)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", cfg.Subject, err)
	}
	log.Printf("Subscribed to '%s'. Waiting for flow records...", cfg.Subject)

	return &LiveSource{
		nc:           nc,
		sub:          sub,
		pollInterval: pollInterval,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}, nil
}

// Next blocks until a record arrives or ctx is cancelled. Every internal
// wait is bounded by the poll interval so cancellation is never starved.
func (s *LiveSource) Next(ctx context.Context) (*model.FlowRecord, error) {
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := s.sub.NextMsg(s.pollInterval)
		if errors.Is(err, nats.ErrTimeout) {
			// No record within the poll interval; re-check cancellation.
			continue
		}
		if err != nil {
			failures++
			if failures > s.maxRetries {
				return nil, &model.SourceError{Attempts: failures, Err: err}
			}
			log.Printf("Live source read failed (attempt %d/%d): %v", failures, s.maxRetries, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryBackoff):
			}
			continue
		}

		rec, err := probe.DecodeFlowRecord(msg.Data)
		if err != nil {
			// One undecodable message is a per-record problem, not a
			// source failure.
			log.Printf("Dropping undecodable flow record: %v", err)
			continue
		}
		return rec, nil
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *LiveSource) Close() error {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
	return nil
}
