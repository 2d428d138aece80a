package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
)

// Publisher publishes flow records to a NATS subject for the engine to
// consume.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to NATS.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes one flow record and publishes it.
func (p *Publisher) Publish(rec *model.FlowRecord) error {
	data, err := EncodeFlowRecord(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
