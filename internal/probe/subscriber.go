package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"CANSpectra/internal/config"
	"CANSpectra/internal/model"
	"CANSpectra/internal/parse"
)

// FrameHandler is a function that processes a received frame.
type FrameHandler func(frame model.Frame)

// Subscriber is responsible for subscribing to a NATS subject and processing
// the candump-encoded frames published there.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and processes messages with the
// provided handler. Messages that do not parse as candump lines are dropped.
func (s *Subscriber) Start(handler FrameHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		frame, ok := parse.ParseLine(string(msg.Data))
		if !ok {
			log.Printf("Dropping malformed frame message: %q", msg.Data)
			return
		}
		handler(frame)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for frames...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
