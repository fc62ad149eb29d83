package eventbus

import (
	"testing"
	"time"
)

func TestBridgesChangedRoundTrip(t *testing.T) {
	bus, err := Start()
	if err != nil {
		t.Fatalf("start bus: %v", err)
	}
	defer bus.Shutdown()

	received := make(chan BridgeSnapshotChanged, 1)
	if err := bus.SubscribeBridgesChanged(func(e BridgeSnapshotChanged) {
		received <- e
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishBridgesChanged([]string{"sct", "pc"})

	select {
	case e := <-received:
		if len(e.Regions) != 2 || e.Regions[0] != "sct" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridges_changed event")
	}
}

func TestVesselsChangedRoundTrip(t *testing.T) {
	bus, err := Start()
	if err != nil {
		t.Fatalf("start bus: %v", err)
	}
	defer bus.Shutdown()

	received := make(chan struct{}, 1)
	if err := bus.SubscribeVesselsChanged(func(VesselRegistryChanged) {
		received <- struct{}{}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishVesselsChanged()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for vessels_changed event")
	}
}
