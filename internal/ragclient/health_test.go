package ragclient

import (
	"context"
	"testing"
	"time"
)

type fakeProber struct {
	calls   int
	healthy bool
}

func (p *fakeProber) ProbeHealth(_ context.Context) bool {
	p.calls++
	return p.healthy
}

func newTestCache(p Prober, now *time.Time) *HealthCache {
	cache := NewHealthCache(p, 10*time.Second, 2*time.Second)
	cache.now = func() time.Time { return *now }
	return cache
}

func TestHealthCacheProbesOnFirstCall(t *testing.T) {
	prober := &fakeProber{healthy: false}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(prober, &now)

	// Starts optimistic but never-checked, so the first call must probe.
	if cache.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = true with failing prober, want false")
	}
	if prober.calls != 1 {
		t.Errorf("prober calls = %d, want 1", prober.calls)
	}
}

func TestHealthCacheCachesWithinWindow(t *testing.T) {
	prober := &fakeProber{healthy: true}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(prober, &now)

	if !cache.IsHealthy(context.Background()) {
		t.Fatal("IsHealthy() = false, want true")
	}

	now = now.Add(9 * time.Second)
	if !cache.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = false within window, want cached true")
	}
	if prober.calls != 1 {
		t.Errorf("prober calls = %d, want 1 (second call should hit cache)", prober.calls)
	}
}

func TestHealthCacheProbesAgainWhenStale(t *testing.T) {
	prober := &fakeProber{healthy: true}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(prober, &now)

	cache.IsHealthy(context.Background())

	prober.healthy = false
	now = now.Add(10 * time.Second)
	if cache.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = true after stale re-probe, want false")
	}
	if prober.calls != 2 {
		t.Errorf("prober calls = %d, want 2", prober.calls)
	}
}

func TestHealthCacheFailureShortensNothing(t *testing.T) {
	// A failed probe still advances lastChecked: the down flag is cached for
	// the full window, not re-probed on every call.
	prober := &fakeProber{healthy: false}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(prober, &now)

	cache.IsHealthy(context.Background())

	prober.healthy = true
	now = now.Add(5 * time.Second)
	if cache.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = true within window, want cached false")
	}
	if prober.calls != 1 {
		t.Errorf("prober calls = %d, want 1", prober.calls)
	}

	now = now.Add(5 * time.Second)
	if !cache.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = false after recovery probe, want true")
	}
}
