package ragclient

import (
	"context"
	"sync"
	"time"
)

// Prober answers whether the RAG service looks up right now.
type Prober interface {
	ProbeHealth(ctx context.Context) bool
}

// HealthCache memoizes the RAG service's health for a short window so a probe
// is not issued on every message. It starts optimistic: healthy and
// never-checked, so the first call always probes.
type HealthCache struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	healthy     bool
	lastChecked time.Time
}

func NewHealthCache(prober Prober, interval, probeTimeout time.Duration) *HealthCache {
	return &HealthCache{
		prober:       prober,
		interval:     interval,
		probeTimeout: probeTimeout,
		now:          time.Now,
		healthy:      true,
	}
}

// IsHealthy returns the cached flag when it is fresh, otherwise issues one
// probe with a short timeout and records the outcome. lastChecked advances on
// every probe, success or not, so a failing dependency is re-checked at the
// same cadence as a healthy one.
func (h *HealthCache) IsHealthy(ctx context.Context) bool {
	h.mu.Lock()
	now := h.now()
	if !h.lastChecked.IsZero() && now.Sub(h.lastChecked) < h.interval {
		healthy := h.healthy
		h.mu.Unlock()
		return healthy
	}
	h.mu.Unlock()

	// The probe runs outside the lock; two callers racing on a stale window
	// may both probe, and the second write just overwrites with an equally
	// fresh answer.
	probeCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()
	healthy := h.prober.ProbeHealth(probeCtx)

	h.mu.Lock()
	h.healthy = healthy
	h.lastChecked = now
	h.mu.Unlock()
	return healthy
}
