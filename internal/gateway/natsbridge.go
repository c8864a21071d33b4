package gateway

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// NATSSource is an alternative event source for development and tests: it
// consumes the same {type, payload} envelopes from a NATS subject and feeds
// the same sink as the WebSocket client, so the rest of the runtime cannot
// tell the sources apart. Outbound commands publish to a sibling subject.
type NATSSource struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	dispatcher *Dispatcher
	calls      *Calls
	cmdSubject string
	logger     *logging.Logger
}

// ConnectNATS subscribes to eventSubject on the given server and publishes
// commands to cmdSubject.
func ConnectNATS(url, eventSubject, cmdSubject string, sink protocol.EventSink, logger *logging.Logger) (*NATSSource, error) {
	nc, err := nats.Connect(url, nats.Name("cockpit"))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	s := &NATSSource{
		conn:       nc,
		cmdSubject: cmdSubject,
		logger:     logger.WithComponent("nats"),
	}
	s.calls = NewCalls(s.Send, 0, logger)
	s.dispatcher = NewDispatcher(sink, s.calls, logger)

	sub, err := nc.Subscribe(eventSubject, func(msg *nats.Msg) {
		s.dispatcher.Dispatch(msg.Data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats subscribe %s: %w", eventSubject, err)
	}
	s.sub = sub
	s.logger.Info("nats source connected", map[string]interface{}{
		"events":   eventSubject,
		"commands": cmdSubject,
	})
	return s, nil
}

// Calls exposes the correlation table for out-of-band tool execution.
func (s *NATSSource) Calls() *Calls {
	return s.calls
}

// Send publishes a command envelope.
func (s *NATSSource) Send(env protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return s.conn.Publish(s.cmdSubject, data)
}

// Close drains the subscription and closes the connection.
func (s *NATSSource) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
