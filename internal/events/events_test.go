package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ registry.Observer = (*Publisher)(nil)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestPublisher_Subject(t *testing.T) {
	p := NewPublisher(nil, "", nil)
	assert.Equal(t, "multistore.registry.store.registered.events", p.Subject(TypeStoreRegistered, "events"))

	p = NewPublisher(nil, "acme.stores", nil)
	assert.Equal(t, "acme.stores.inspector.switched.default", p.Subject(TypeInspectorSwitched, "default"))
}

func TestPublisher_Publishes(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	s, err := sub.SubscribeSync(DefaultSubjectPrefix + ".>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	p, err := Connect(server.ClientURL(), "", zap.NewNop())
	require.NoError(t, err)

	p.StoreRegistered("events")
	p.InspectorSwitched("events")
	p.StoreUnregistered("events")
	require.NoError(t, p.Close())

	want := []struct {
		subject string
		typ     string
	}{
		{"multistore.registry.store.registered.events", TypeStoreRegistered},
		{"multistore.registry.inspector.switched.events", TypeInspectorSwitched},
		{"multistore.registry.store.unregistered.events", TypeStoreUnregistered},
	}
	for _, w := range want {
		msg, err := s.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, w.subject, msg.Subject)

		var ev Event
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, w.typ, ev.Type)
		assert.Equal(t, "events", ev.Store)
		assert.False(t, ev.Time.IsZero())
	}
}

func TestPublisher_BorrowedConnectionStaysOpen(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	p := NewPublisher(nc, "", nil)
	p.StoreRegistered("x")
	require.NoError(t, p.Close())
	assert.True(t, nc.IsConnected())
}

func TestPublisher_ObservesRegistry(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	s, err := nc.SubscribeSync("acme.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	injector := do.New()
	t.Cleanup(func() { _ = injector.Shutdown() })
	reg := registry.New(injector, store.NewFactory(zap.NewNop()), nil)
	reg.Observe(NewPublisher(nc, "acme", nil))

	require.True(t, reg.Register("billing", nil))
	require.True(t, reg.Unregister("billing"))

	for _, want := range []string{"acme.store.registered.billing", "acme.store.unregistered.billing"} {
		msg, err := s.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Subject)
	}
}
