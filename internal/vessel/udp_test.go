package vessel

import (
	"testing"
	"time"

	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/model"
)

func TestStationMapResolvesConfiguredIP(t *testing.T) {
	m := ParseStationMap("10.0.0.1=welland-tower,10.0.0.2=montreal-tower")
	if got := m.resolve("10.0.0.1"); got != "welland-tower" {
		t.Fatalf("resolve = %q, want welland-tower", got)
	}
}

func TestStationMapSyntheticForUnmappedIP(t *testing.T) {
	m := ParseStationMap("")
	if got := m.resolve("10.0.0.9"); got != "udp-10.0.0.9" {
		t.Fatalf("resolve = %q, want synthetic id", got)
	}
}

func TestMergeUpdatesCombinesPositionAndStatic(t *testing.T) {
	name := "TEST VESSEL"
	position := Update{MMSI: 1, HasPosition: true, Position: model.Coordinates{Lat: 1, Lng: 2}}
	static := Update{MMSI: 1, Name: &name}

	merged := mergeUpdates(position, static)
	if !merged.HasPosition || merged.Position.Lat != 1 {
		t.Fatal("expected position preserved")
	}
	if merged.Name == nil || *merged.Name != name {
		t.Fatal("expected name merged in")
	}
}

func TestUDPListenerIngestBuffersLatestPerMMSI(t *testing.T) {
	c := clock.NewFake(time.Now())
	r := NewRegistry(wellandRegions(), c)
	l := NewUDPListener(0, ParseStationMap(""), r)

	l.ingest("udp-1.2.3.4", "!AIVDM,1,1,,A,15M67FC000G?ufbE`FepT@3n00Sa,0*5C")
	l.mu.Lock()
	n := len(l.buffer["udp-1.2.3.4"])
	l.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 buffered update, got %d", n)
	}

	l.flush()
	l.mu.Lock()
	remaining := len(l.buffer)
	l.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected flush to clear the buffer, got %d sources still buffered", remaining)
	}
}
