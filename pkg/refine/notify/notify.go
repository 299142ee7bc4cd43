// Package notify publishes a single completion message over NATS once a run
// finishes, so a downstream scheduler or dashboard can react without
// polling the output directory.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Publisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials url and returns a Publisher that will publish run-completion
// messages to subject. The connection logs reconnects rather than treating
// them as fatal, since a run that outlives a brief NATS blip should still
// finish and write its output files.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("schedulerefine"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connecting to nats: %w", err)
	}

	return &Publisher{nc: nc, subject: subject}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}

// RunCompleted is the payload published when a run finishes.
type RunCompleted struct {
	RunID           string    `json:"runId"`
	CompletedAt     time.Time `json:"completedAt"`
	RoutesProcessed int       `json:"routesProcessed"`
	TotalDataPoints int       `json:"totalDataPoints"`
	PercentOnTime   float64   `json:"percentOnTime"`
}

func (p *Publisher) PublishRunCompleted(msg RunCompleted) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshaling run completion: %w", err)
	}

	if err := p.nc.Publish(p.subject, b); err != nil {
		return fmt.Errorf("notify: publishing run completion: %w", err)
	}

	return nil
}
