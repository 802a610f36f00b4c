package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/parse"
)

// Publisher is responsible for publishing frames to a NATS subject. Frames
// travel in the candump text form, so anything that can parse a log can parse
// the bus.
type Publisher struct {
	nc      *nats.Conn
	subject string
	bus     string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)

	bus := cfg.Bus
	if bus == "" {
		bus = parse.DefaultBus
	}
	return &Publisher{nc: nc, subject: cfg.Subject, bus: bus}, nil
}

// Publish serializes a frame to its candump line and publishes it to the
// configured NATS subject.
func (p *Publisher) Publish(frame model.Frame) error {
	return p.nc.Publish(p.subject, []byte(parse.FormatLine(frame, p.bus)))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
