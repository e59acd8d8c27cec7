package flights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineRecordsTaxiAndAirborne(t *testing.T) {
	tl := &Timeline{Created: t0}

	tl.observe(PhaseBoarding, PhaseTaxi, t0.Add(2*time.Minute))
	tl.observe(PhaseTaxi, PhaseClimb, t0.Add(5*time.Minute))

	assert.Equal(t, t0.Add(2*time.Minute), tl.TaxiStart)
	assert.Equal(t, t0.Add(5*time.Minute), tl.Airborne)
	assert.Equal(t, t0.Add(5*time.Minute), tl.LastUpdate)
}

func TestTimelineMilestonesAreWrittenOnce(t *testing.T) {
	tl := &Timeline{Created: t0}

	tl.observe(PhaseBoarding, PhaseTaxi, t0.Add(time.Minute))
	tl.observe(PhaseTaxi, PhaseClimb, t0.Add(3*time.Minute))

	// Touch-and-go and a second taxi later in the session
	tl.observe(PhaseArrived, PhaseTaxi, t0.Add(40*time.Minute))
	tl.observe(PhaseTaxi, PhaseBoarding, t0.Add(41*time.Minute))
	tl.observe(PhaseBoarding, PhaseTaxi, t0.Add(42*time.Minute))
	tl.observe(PhaseTaxi, PhaseClimb, t0.Add(45*time.Minute))

	assert.Equal(t, t0.Add(time.Minute), tl.TaxiStart)
	assert.Equal(t, t0.Add(3*time.Minute), tl.Airborne)
	assert.Equal(t, t0.Add(45*time.Minute), tl.LastUpdate)
}

func TestTimelineBackfillsMissedTaxi(t *testing.T) {
	tl := &Timeline{Created: t0}

	tl.observe(PhaseBoarding, PhaseClimb, t0.Add(4*time.Minute))

	assert.Equal(t, t0.Add(4*time.Minute), tl.Airborne)
	assert.Equal(t, tl.Airborne, tl.TaxiStart)
}

func TestTimelineIgnoresUnchangedPhase(t *testing.T) {
	tl := &Timeline{Created: t0}

	tl.observe(PhaseTaxi, PhaseTaxi, t0.Add(time.Minute))

	assert.True(t, tl.TaxiStart.IsZero())
	assert.Equal(t, t0.Add(time.Minute), tl.LastUpdate)
}

func TestObserveTransition(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0)
	require.NoError(t, err)
	_, err = s.UpsertPlan(NamespaceEvent, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0)
	require.NoError(t, err)

	s.ObserveTransition(NamespaceStandard, "RFD123", PhaseBoarding, PhaseTaxi, t0.Add(time.Minute))
	s.ObserveTransition(NamespaceEvent, "RFD123", PhaseBoarding, PhaseTaxi, t0.Add(time.Minute))
	s.ObserveTransition(NamespaceStandard, "nobody", PhaseBoarding, PhaseTaxi, t0.Add(time.Minute))

	tl, ok := s.Timeline(NamespaceStandard, "RFD123")
	require.True(t, ok)
	assert.Equal(t, t0, tl.PlanFiled)
	assert.Equal(t, t0.Add(time.Minute), tl.TaxiStart)

	_, ok = s.Timeline(NamespaceEvent, "RFD123")
	assert.False(t, ok)
	_, ok = s.Timeline(NamespaceStandard, "nobody")
	assert.False(t, ok)
}

func TestPlanFiledIsSetByFirstPlan(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0)
	require.NoError(t, err)
	_, err = s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0.Add(10*time.Minute))
	require.NoError(t, err)

	tl, ok := s.Timeline(NamespaceStandard, "RFD123")
	require.True(t, ok)
	assert.Equal(t, t0, tl.PlanFiled)
	assert.Equal(t, t0.Add(10*time.Minute), tl.LastUpdate)
}
