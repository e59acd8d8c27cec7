package flights

import "time"

// observe records the milestones implied by a phase transition. Every milestone
// is written at most once; later observations of the same transition are no-ops.
func (tl *Timeline) observe(previous, current Phase, at time.Time) {
	tl.LastUpdate = at

	if previous == current {
		return
	}

	switch {
	case previous == PhaseBoarding && current == PhaseTaxi:
		if tl.TaxiStart.IsZero() {
			tl.TaxiStart = at
		}

	case (previous == PhaseBoarding || previous == PhaseTaxi) && current == PhaseClimb:
		if tl.Airborne.IsZero() {
			tl.Airborne = at
		}
		// The taxi sample was missed (straight from stand to airborne between two
		// reports); pin taxi-start to the same instant so durations stay defined.
		if tl.TaxiStart.IsZero() {
			tl.TaxiStart = at
		}
	}
}

// ObserveTransition applies a phase transition to the timeline of key, creating
// the timeline if the namespace tracks milestones. It is the entry point for
// transitions computed outside UpsertTelemetry (replays, tests).
func (s *Store) ObserveTransition(ns Namespace, key string, previous, current Phase, at time.Time) {
	n, err := s.namespace(ns)
	if err != nil || !n.trackMilestones {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.records[key]; !ok {
		return
	}
	n.timeline(key, at).observe(previous, current, at)
}
