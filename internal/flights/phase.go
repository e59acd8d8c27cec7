package flights

import (
	"github.com/yegors/flightdesk/internal/config"
)

// CruisePolicy selects how the cruise threshold is derived
type CruisePolicy string

const (
	// CruisePolicyFixed compares altitude against a single configured cruise altitude
	CruisePolicyFixed CruisePolicy = "fixed"
	// CruisePolicyPlanRelative compares altitude against the filed flight level
	CruisePolicyPlanRelative CruisePolicy = "plan_relative"
)

// PhaseEngine infers a flight phase from a telemetry snapshot and the previous phase.
// It holds thresholds only, so one engine is shared by every record and namespace.
type PhaseEngine struct {
	policy            CruisePolicy
	cruiseAltitudeFt  float64
	movingSpeedKts    float64
	liftoffSpeedKts   float64
	descentCutoffKts  float64
	planCruiseBandFt  float64
	planDescentBandFt float64
}

// NewPhaseEngine creates a phase engine from the flight phase configuration
func NewPhaseEngine(cfg config.FlightPhasesConfig) *PhaseEngine {
	policy := CruisePolicy(cfg.CruisePolicy)
	if policy != CruisePolicyPlanRelative {
		policy = CruisePolicyFixed
	}
	return &PhaseEngine{
		policy:            policy,
		cruiseAltitudeFt:  cfg.CruiseAltitudeFt,
		movingSpeedKts:    cfg.MovingSpeedKts,
		liftoffSpeedKts:   cfg.LiftoffSpeedKts,
		descentCutoffKts:  cfg.DescentCutoffSpeedKts,
		planCruiseBandFt:  cfg.PlanCruiseBandFt,
		planDescentBandFt: cfg.PlanDescentBandFt,
	}
}

// Policy returns the active cruise policy
func (e *PhaseEngine) Policy() CruisePolicy {
	return e.policy
}

// NextPhase applies the ordered phase rules. The first matching rule wins and the
// previous phase is returned when nothing matches.
func (e *PhaseEngine) NextPhase(previous Phase, onGround bool, speed, altitude, targetLevel float64, roundTrip bool) Phase {
	// STEP 1: local / round-trip flights report Training for as long as they are airborne
	if !onGround && roundTrip {
		return PhaseTraining
	}

	if onGround {
		stationary := speed < e.movingSpeedKts

		// STEP 2: stopped after having been airborne
		if stationary && previous.Airborne() {
			return PhaseArrived
		}

		// STEP 3: moving under its own power below rotation speed
		if !stationary && speed < e.liftoffSpeedKts {
			return PhaseTaxi
		}

		// STEP 4: parked and never flown (or back from a training sortie)
		if stationary && !previous.Airborne() && previous != PhaseArrived {
			return PhaseBoarding
		}

		// Takeoff roll and landing rollout keep the previous phase
		return previous
	}

	// STEP 5: first airborne sample after leaving the ground
	if previous == PhaseBoarding || previous == PhaseTaxi {
		return PhaseClimb
	}

	// STEP 6: slowed down below the descent floor
	if (previous == PhaseClimb || previous == PhaseCruise) &&
		speed < e.descentCutoffKts &&
		altitude < e.descentFloor(targetLevel) {
		return PhaseDescent
	}

	// STEP 7: at or above cruise
	if altitude >= e.cruiseThreshold(targetLevel) {
		return PhaseCruise
	}

	// STEP 8: nothing applies
	return previous
}

// Infer evaluates the rules for a record. It reports false when there is no
// telemetry to evaluate; the stored phase must then be left as it is.
func (e *PhaseEngine) Infer(previous Phase, telemetry *Telemetry, plan *FlightPlan) (Phase, bool) {
	if telemetry == nil {
		return previous, false
	}

	var targetLevel float64
	roundTrip := false
	if plan != nil {
		targetLevel = float64(plan.Level)
		roundTrip = plan.RoundTrip()
	}

	return e.NextPhase(previous, telemetry.OnGround, telemetry.Speed, telemetry.Altitude, targetLevel, roundTrip), true
}

// cruiseThreshold is the altitude at or above which an airborne aircraft is cruising
func (e *PhaseEngine) cruiseThreshold(targetLevel float64) float64 {
	if e.policy == CruisePolicyPlanRelative && targetLevel > 0 {
		return targetLevel - e.planCruiseBandFt
	}
	return e.cruiseAltitudeFt
}

// descentFloor is the altitude below which a climbing or cruising aircraft may be descending
func (e *PhaseEngine) descentFloor(targetLevel float64) float64 {
	if e.policy == CruisePolicyPlanRelative && targetLevel > 0 {
		return targetLevel - e.planDescentBandFt
	}
	return e.cruiseAltitudeFt
}
