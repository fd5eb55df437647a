package natsgath

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// flushTimeout bounds the wait for the server to acknowledge a message.
const flushTimeout = 5 * time.Second

// Publisher is the part of *nats.Conn the gatherer uses.
type Publisher interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// New creates a gatherer that streams run events to the given subject.
func New(nc Publisher, subject string, logger *slog.Logger) *natsGatherer {
	return &natsGatherer{
		nc:      nc,
		subject: subject,
		logger:  logger,
	}
}

// Connect opens a connection to the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("strbench"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}
