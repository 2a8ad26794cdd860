// Package events publishes store registry changes to NATS.
//
// Each change is a JSON Event on the subject
//
//	{prefix}.{type}.{store}
//
// for example multistore.registry.store.registered.events. Subscribers
// that only care about one store subscribe to "{prefix}.*.*.{store}".
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event types.
const (
	TypeStoreRegistered   = "store.registered"
	TypeStoreUnregistered = "store.unregistered"
	TypeInspectorSwitched = "inspector.switched"
)

// DefaultSubjectPrefix is used when the config leaves the prefix empty.
const DefaultSubjectPrefix = "multistore.registry"

// Event describes one registry change.
type Event struct {
	Type  string    `json:"type"`
	Store string    `json:"store"`
	Time  time.Time `json:"time"`
}

// Publisher sends registry events over a NATS connection. Publish
// failures are logged and never fail the registry operation.
type Publisher struct {
	conn   *nats.Conn
	owned  bool
	prefix string
	logger *zap.Logger
}

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("multistore"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	p := NewPublisher(nc, prefix, logger)
	p.owned = true
	return p, nil
}

// NewPublisher wraps an existing connection. Close does not close it.
func NewPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: nc, prefix: prefix, logger: logger}
}

// Subject returns the subject an event of eventType for store is sent on.
func (p *Publisher) Subject(eventType, store string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, eventType, store)
}

// StoreRegistered publishes a TypeStoreRegistered event.
func (p *Publisher) StoreRegistered(name string) {
	p.publish(TypeStoreRegistered, name)
}

// StoreUnregistered publishes a TypeStoreUnregistered event.
func (p *Publisher) StoreUnregistered(name string) {
	p.publish(TypeStoreUnregistered, name)
}

// InspectorSwitched publishes a TypeInspectorSwitched event.
func (p *Publisher) InspectorSwitched(name string) {
	p.publish(TypeInspectorSwitched, name)
}

func (p *Publisher) publish(eventType, store string) {
	subject := p.Subject(eventType, store)
	data, err := json.Marshal(Event{Type: eventType, Store: store, Time: time.Now().UTC()})
	if err != nil {
		p.logger.Warn("marshal registry event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("publish registry event", zap.String("subject", subject), zap.Error(err))
	}
}

// Close flushes pending events and, for a connection opened by Connect,
// closes it.
func (p *Publisher) Close() error {
	if !p.owned {
		return p.conn.Flush()
	}
	return p.conn.Drain()
}
