package natsgath

import (
	"encoding/json"
)

func (s *natsGatherer) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("failed to marshal message", "error", err)
		return
	}

	if err := s.nc.Publish(s.subject, b); err != nil {
		s.logger.Warn("failed to publish message to NATS", "subject", s.subject, "error", err)
		return
	}
	// Publish only buffers; the message must be on the wire before the
	// next measurement starts
	if err := s.nc.FlushTimeout(flushTimeout); err != nil {
		s.logger.Warn("failed to flush NATS connection", "subject", s.subject, "error", err)
	}
}
