package flights

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/pkg/logger"
)

// MarkStale flips live=false on records whose last telemetry is older than timeout.
// Records and their plans are kept. It returns the keys that changed.
func (s *Store) MarkStale(ns Namespace, now time.Time, timeout time.Duration) []string {
	n, err := s.namespace(ns)
	if err != nil {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var stale []string
	for key, rec := range n.records {
		if rec.Live && now.Sub(rec.LastSeen) > timeout {
			rec.Live = false
			stale = append(stale, key)
		}
	}
	return stale
}

// SweepResult reports what one retention sweep removed
type SweepResult struct {
	Removed          []*FlightRecord
	TimelinesExpired int
}

// Sweep deletes records idle for longer than retention, and timelines older than
// ceiling (measured from plan filing, or creation when no plan was filed) even if
// their record is still present.
func (s *Store) Sweep(ns Namespace, now time.Time, retention, ceiling time.Duration) SweepResult {
	var result SweepResult
	n, err := s.namespace(ns)
	if err != nil {
		return result
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for key, rec := range n.records {
		if now.Sub(rec.LastActivity()) > retention {
			if removed, ok := n.deleteLocked(key); ok {
				result.Removed = append(result.Removed, removed)
			}
		}
	}

	for key, tl := range n.timelines {
		start := tl.PlanFiled
		if start.IsZero() {
			start = tl.Created
		}
		if now.Sub(start) > ceiling {
			delete(n.timelines, key)
			result.TimelinesExpired++
		}
	}
	return result
}

// RemovalHandler is notified about records deleted by the reaper
type RemovalHandler func(ns Namespace, rec *FlightRecord)

// Reaper runs the liveness and retention timers against every namespace
type Reaper struct {
	store     *Store
	logger    *logger.Logger
	onRemove  RemovalHandler
	now       func() time.Time
	liveness  time.Duration
	livecheck time.Duration
	retention time.Duration
	ceiling   time.Duration
	sweep     time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReaper creates a reaper. onRemove may be nil.
func NewReaper(store *Store, cfg config.StalenessConfig, onRemove RemovalHandler, log *logger.Logger) *Reaper {
	return &Reaper{
		store:     store,
		logger:    log.Named("reaper"),
		onRemove:  onRemove,
		now:       time.Now,
		liveness:  time.Duration(cfg.LivenessTimeoutSecs) * time.Second,
		livecheck: time.Duration(cfg.LivenessCheckIntervalSecs) * time.Second,
		retention: time.Duration(cfg.RetentionMinutes) * time.Minute,
		ceiling:   time.Duration(cfg.TimelineCeilingMinutes) * time.Minute,
		sweep:     time.Duration(cfg.SweepIntervalSecs) * time.Second,
		stopCh:    make(chan struct{}),
	}
}

// LivenessTimeout returns the configured liveness timeout
func (r *Reaper) LivenessTimeout() time.Duration {
	return r.liveness
}

// Start launches the background timers
func (r *Reaper) Start(ctx context.Context) {
	r.logger.Info("Starting staleness reaper",
		logger.Duration("liveness_timeout", r.liveness),
		logger.Duration("retention", r.retention),
		logger.Duration("timeline_ceiling", r.ceiling),
		logger.Duration("sweep_interval", r.sweep))

	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop stops the timers and waits for an in-progress sweep to finish
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
	r.logger.Info("Staleness reaper stopped")
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()

	liveTicker := time.NewTicker(r.livecheck)
	defer liveTicker.Stop()
	sweepTicker := time.NewTicker(r.sweep)
	defer sweepTicker.Stop()

	for {
		select {
		case <-liveTicker.C:
			r.CheckLiveness(r.now())
		case <-sweepTicker.C:
			r.RunSweep(r.now())
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// CheckLiveness runs one liveness pass over every namespace
func (r *Reaper) CheckLiveness(now time.Time) {
	for _, ns := range Namespaces {
		if stale := r.store.MarkStale(ns, now, r.liveness); len(stale) > 0 {
			r.logger.Debug("Flights no longer live",
				logger.String("namespace", string(ns)),
				logger.Int("count", len(stale)))
		}
	}
}

// RunSweep runs one retention pass over every namespace
func (r *Reaper) RunSweep(now time.Time) {
	for _, ns := range Namespaces {
		result := r.store.Sweep(ns, now, r.retention, r.ceiling)

		for _, rec := range result.Removed {
			r.logger.Info("Removed stale flight",
				logger.String("namespace", string(ns)),
				logger.String("key", rec.Key),
				logger.String("player", rec.PlayerName),
				logger.Time("last_activity", rec.LastActivity()))
			if r.onRemove != nil {
				r.onRemove(ns, rec)
			}
		}

		if result.TimelinesExpired > 0 {
			r.logger.Debug("Expired milestone timelines",
				logger.String("namespace", string(ns)),
				logger.Int("count", result.TimelinesExpired))
		}
	}
}
