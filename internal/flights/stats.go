package flights

import (
	"time"

	"github.com/yegors/flightdesk/internal/config"
)

// StatsPolicy bounds which duration samples enter the origin statistics
type StatsPolicy struct {
	Window      time.Duration // only plans filed within this trailing window
	MaxOffBlock time.Duration
	MaxTaxi     time.Duration
}

// StatsPolicyFromConfig converts the statistics configuration
func StatsPolicyFromConfig(cfg config.StatisticsConfig) StatsPolicy {
	return StatsPolicy{
		Window:      time.Duration(cfg.WindowMinutes) * time.Minute,
		MaxOffBlock: time.Duration(cfg.MaxOffBlockMinutes * float64(time.Minute)),
		MaxTaxi:     time.Duration(cfg.MaxTaxiMinutes * float64(time.Minute)),
	}
}

// ComputeOriginStats derives off-block (taxi-start minus plan-filed) and taxi
// (airborne minus taxi-start) durations per departure airport. Samples outside
// the plausibility band are dropped. Origins without any sample are omitted.
func (s *Store) ComputeOriginStats(ns Namespace, now time.Time, policy StatsPolicy) map[string]*OriginStats {
	out := make(map[string]*OriginStats)
	n, err := s.namespace(ns)
	if err != nil {
		return out
	}

	cutoff := now.Add(-policy.Window)

	n.mu.RLock()
	defer n.mu.RUnlock()

	for key, tl := range n.timelines {
		rec, ok := n.records[key]
		if !ok || rec.Plan == nil || rec.Plan.Origin == "" {
			continue
		}
		if tl.PlanFiled.IsZero() || tl.PlanFiled.Before(cutoff) {
			continue
		}

		origin := rec.Plan.Origin
		if !tl.TaxiStart.IsZero() {
			if d, ok := plausible(tl.TaxiStart.Sub(tl.PlanFiled), policy.MaxOffBlock); ok {
				st := stats(out, origin)
				st.OffBlockMinutes = append(st.OffBlockMinutes, d)
			}
		}
		if !tl.TaxiStart.IsZero() && !tl.Airborne.IsZero() {
			if d, ok := plausible(tl.Airborne.Sub(tl.TaxiStart), policy.MaxTaxi); ok {
				st := stats(out, origin)
				st.TaxiMinutes = append(st.TaxiMinutes, d)
			}
		}
	}

	for _, st := range out {
		st.AvgOffBlockMinutes = mean(st.OffBlockMinutes)
		st.AvgTaxiMinutes = mean(st.TaxiMinutes)
	}
	return out
}

func stats(m map[string]*OriginStats, origin string) *OriginStats {
	st, ok := m[origin]
	if !ok {
		st = &OriginStats{OffBlockMinutes: []float64{}, TaxiMinutes: []float64{}}
		m[origin] = st
	}
	return st
}

// plausible converts d to minutes if it lies strictly between zero and limit
func plausible(d, limit time.Duration) (float64, bool) {
	if d <= 0 || d >= limit {
		return 0, false
	}
	return d.Minutes(), true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
