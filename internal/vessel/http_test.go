package vessel

import (
	"context"
	"testing"
	"time"

	"github.com/Averyy/bridge-up/internal/clock"
)

func TestPollerEnabledRequiresAPIKey(t *testing.T) {
	r := NewRegistry(wellandRegions(), clock.NewFake(time.Now()))
	if NewPoller("https://example.invalid", "", "", r).Enabled() {
		t.Fatal("expected poller without an API key to be disabled")
	}
	if !NewPoller("https://example.invalid", "key", "", r).Enabled() {
		t.Fatal("expected poller with an API key to be enabled")
	}
}

func TestPollerBackoffDoublesAndCaps(t *testing.T) {
	r := NewRegistry(wellandRegions(), clock.NewFake(time.Now()))
	// Unreachable endpoint: every poll fails, exercising the backoff ramp.
	p := NewPoller("http://127.0.0.1:1", "key", "", r)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first := p.Poll(ctx)
	if first != httpBackoffBase {
		t.Fatalf("first backoff = %v, want %v", first, httpBackoffBase)
	}
	second := p.Poll(ctx)
	if second != httpBackoffBase*2 {
		t.Fatalf("second backoff = %v, want %v", second, httpBackoffBase*2)
	}

	for i := 0; i < 10; i++ {
		p.Poll(ctx)
	}
	if p.backoff != httpBackoffCap {
		t.Fatalf("backoff = %v, want capped at %v", p.backoff, httpBackoffCap)
	}
}
