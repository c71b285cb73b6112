package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/metrics"
)

// Sweeper evicts registry entries that have not heartbeated within the
// staleness window.
type Sweeper struct {
	registry  *Registry
	interval  time.Duration
	staleness time.Duration
	logger    zerolog.Logger
}

func NewSweeper(logger zerolog.Logger, registry *Registry, interval, staleness time.Duration) *Sweeper {
	return &Sweeper{
		registry:  registry,
		interval:  interval,
		staleness: staleness,
		logger:    logger.With().Str("component", "health-sweeper").Logger(),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("staleness", s.staleness).
		Msg("health sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("health sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(s.registry.Now())
		}
	}
}

// Sweep performs one pass and returns the number of evicted nodes. Candidates
// come from a snapshot, but each eviction re-checks the live record.
func (s *Sweeper) Sweep(now time.Time) int {
	evicted := 0
	for _, rec := range s.registry.Snapshot() {
		if rec.Age(now) <= s.staleness {
			continue
		}
		if s.registry.EvictIfStale(rec.ID, s.staleness, now) {
			evicted++
			s.logger.Info().
				Str("node_id", rec.ID).
				Time("last_heartbeat", rec.LastHeartbeat).
				Msg("evicted stale node")
		}
	}

	metrics.NodesEvictedTotal.Add(float64(evicted))
	metrics.RegistryNodes.Set(float64(s.registry.Len()))

	if evicted > 0 {
		s.logger.Info().Int("evicted", evicted).Msg("sweep complete")
	} else {
		s.logger.Debug().Int("evicted", 0).Msg("sweep complete")
	}
	return evicted
}
