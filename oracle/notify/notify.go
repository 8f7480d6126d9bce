// Package notify publishes oracle response outcomes to NATS so other
// processes can follow what the simulated oracles reported.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

// Outcome is the published record of one submitOracleResponse call.
type Outcome struct {
	Response  types.OracleResponse `json:"response"`
	Status    string               `json:"status"`
	Submitted bool                 `json:"submitted"`
	Error     string               `json:"error,omitempty"`
	Time      time.Time            `json:"time"`
}

type Publisher interface {
	Publish(Outcome) error
	Close()
}

// New connects to url. An empty url yields a publisher that drops everything.
func New(url, subject string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("flightsurety-oracled"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Errorf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", url, err)
	}

	log.Infof("publishing oracle outcomes to nats subject %s", subject)
	return &natsPublisher{conn: nc, subject: subject}, nil
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
}

func (p *natsPublisher) Publish(o Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject, data)
}

func (p *natsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Nop discards outcomes.
type Nop struct{}

func (Nop) Publish(Outcome) error { return nil }

func (Nop) Close() {}
