// Package eventbus decouples the Scraper and Registry from the Fanout
// gateway (spec.md §9): an embedded, loopback-only NATS server carries
// typed change notifications. Payloads are the event's identity only
// (region/channel names), never the data of record, so a missed message is
// harmless — the next read goes through Persistence or the Registry.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	subjectBridgesChanged = "bridgeup.bridges_changed"
	subjectVesselsChanged = "bridgeup.vessels_changed"
)

// BridgeSnapshotChanged is published whenever the Scraper commits an
// observable change to one or more bridges.
type BridgeSnapshotChanged struct {
	Regions []string `json:"regions"`
}

// VesselRegistryChanged is published whenever the vessel registry's visible
// state differs from what was last broadcast.
type VesselRegistryChanged struct{}

// Bus wraps an embedded NATS server plus one client connection used for
// both publishing and subscribing within this process.
type Bus struct {
	server *natsserver.Server
	conn   *nats.Conn
}

// Start launches an embedded, loopback-only NATS server (core pub/sub, no
// JetStream — nothing here needs durability) and connects to it.
func Start() (*Bus, error) {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // random free port
		NoSigs: true,
		NoLog:  true,
	}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded event bus: %w", err)
	}
	srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded event bus failed to become ready")
	}

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connect to embedded event bus: %w", err)
	}

	slog.Info("event bus started", "url", srv.ClientURL())
	return &Bus{server: srv, conn: conn}, nil
}

// Shutdown drains the connection and stops the embedded server.
func (b *Bus) Shutdown() {
	if b.conn != nil {
		b.conn.Drain()
	}
	if b.server != nil {
		b.server.Shutdown()
	}
	slog.Info("event bus stopped")
}

// PublishBridgesChanged announces that one or more regions' bridges changed
// observably.
func (b *Bus) PublishBridgesChanged(regions []string) {
	b.publish(subjectBridgesChanged, BridgeSnapshotChanged{Regions: regions})
}

// PublishVesselsChanged announces that the vessel registry's visible state
// may have changed.
func (b *Bus) PublishVesselsChanged() {
	b.publish(subjectVesselsChanged, VesselRegistryChanged{})
}

func (b *Bus) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

// SubscribeBridgesChanged invokes fn for every BridgeSnapshotChanged event.
func (b *Bus) SubscribeBridgesChanged(fn func(BridgeSnapshotChanged)) error {
	_, err := b.conn.Subscribe(subjectBridgesChanged, func(msg *nats.Msg) {
		var event BridgeSnapshotChanged
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("unmarshal bridges_changed event", "error", err)
			return
		}
		fn(event)
	})
	return err
}

// SubscribeVesselsChanged invokes fn for every VesselRegistryChanged event.
func (b *Bus) SubscribeVesselsChanged(fn func(VesselRegistryChanged)) error {
	_, err := b.conn.Subscribe(subjectVesselsChanged, func(msg *nats.Msg) {
		fn(VesselRegistryChanged{})
	})
	return err
}
