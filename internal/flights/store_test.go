package flights

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightdesk/internal/config"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(fixedEngine())
}

func parkedTelemetry(player, session string) TelemetryEvent {
	return TelemetryEvent{
		SessionID:    session,
		PlayerName:   player,
		AircraftType: "Boeing 737",
		IsOnGround:   true,
	}
}

func requireIndexConsistent(t *testing.T, s *Store, ns Namespace) {
	t.Helper()
	n, err := s.namespace(ns)
	require.NoError(t, err)

	n.mu.RLock()
	defer n.mu.RUnlock()
	for key, rec := range n.records {
		bound, ok := n.identities.lookup(rec.PlayerName)
		require.True(t, ok, "record %s has no identity binding", key)
		assert.Equal(t, key, bound)
	}
	assert.Equal(t, len(n.records), n.identities.len())
}

func TestPlanThenTelemetryWithDifferentIdentitiesShareOneRecord(t *testing.T) {
	s := newTestStore()

	planChange, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName:   "alice",
		Callsign:     "RFD123",
		RealCallsign: "Cessna-4312",
		Departing:    "IRFD",
		Arriving:     "ILAR",
		FlightLevel:  "FL120",
	}, t0)
	require.NoError(t, err)
	assert.True(t, planChange.Created)
	assert.Equal(t, "RFD123", planChange.Key)

	telChange, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("alice", "Cessna-4312"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, telChange.Created)
	assert.Equal(t, "RFD123", telChange.Key)

	assert.Equal(t, 1, s.Count(NamespaceStandard))
	rec, ok := s.Get(NamespaceStandard, "RFD123")
	require.True(t, ok)
	assert.Equal(t, "RFD123", rec.Callsign)
	assert.Equal(t, "Cessna-4312", rec.SessionID)
	require.NotNil(t, rec.Plan)
	assert.Equal(t, 12000, rec.Plan.Level)
	require.NotNil(t, rec.Telemetry)
	assert.True(t, rec.Live)
	assert.True(t, rec.DataValid)
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestTelemetryThenPlanKeepsTelemetryKey(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("alice", "Cessna-4312"), t0)
	require.NoError(t, err)

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName: "alice",
		Callsign:   "RFD123",
		Departing:  "IRFD",
		Arriving:   "ILAR",
	}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, change.Created)
	assert.Equal(t, "Cessna-4312", change.Key)
	assert.Equal(t, "RFD123", change.Record.Callsign)
	assert.Equal(t, 1, s.Count(NamespaceStandard))
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestRefiledPlanReplacesPreviousPlan(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName:  "alice",
		Callsign:    "RFD123",
		Departing:   "IRFD",
		Arriving:    "ILAR",
		FlightLevel: "FL350",
		FlightRules: "IFR",
		Route:       "DCT BOBOS DCT",
	}, t0)
	require.NoError(t, err)

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName: "alice",
		Callsign:   "RFD123",
		Departing:  "IMLR",
	}, t0.Add(5*time.Minute))
	require.NoError(t, err)

	plan := change.Record.Plan
	require.NotNil(t, plan)
	assert.Equal(t, "IMLR", plan.Origin)
	assert.Equal(t, "ZZZZ", plan.Destination)
	assert.Equal(t, 0, plan.Level)
	assert.Equal(t, "", plan.Rules)
	assert.Equal(t, "N/A", plan.Route)
	assert.Equal(t, t0.Add(5*time.Minute), plan.FiledAt)
	assert.Equal(t, "12:05z", plan.FiledDisplay)
}

func TestPlanOnlyRecordIsNotLive(t *testing.T) {
	s := newTestStore()

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "bob", Callsign: "GRV01"}, t0)
	require.NoError(t, err)
	assert.False(t, change.Record.Live)
	assert.False(t, change.Record.DataValid)
	assert.Nil(t, change.Record.Telemetry)
	assert.Equal(t, PhaseBoarding, change.Record.Phase)
	assert.Equal(t, "Boarding", change.Record.PhaseName)
}

func TestPlanLeavesLiveFlagOfExistingRecord(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("bob", "GRV01"), t0)
	require.NoError(t, err)

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "bob", Callsign: "GRV01"}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, change.Record.Live)
	assert.True(t, change.Record.DataValid)
}

func TestTelemetryReplayIsIdempotent(t *testing.T) {
	s := newTestStore()

	ev := parkedTelemetry("alice", "Cessna-4312")
	ev.Speed = 12

	first, err := s.UpsertTelemetry(NamespaceStandard, ev, t0)
	require.NoError(t, err)
	assert.True(t, first.PhaseChanged)
	assert.Equal(t, PhaseBoarding, first.From)
	assert.Equal(t, PhaseTaxi, first.To)

	second, err := s.UpsertTelemetry(NamespaceStandard, ev, t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, second.PhaseChanged)
	assert.Equal(t, PhaseTaxi, second.Record.Phase)
	assert.Equal(t, PhaseBoarding, second.Record.PreviousPhase)
	assert.Equal(t, 1, s.Count(NamespaceStandard))
}

func TestTelemetryFieldsAreNormalised(t *testing.T) {
	s := newTestStore()

	ev := parkedTelemetry("alice", "Cessna-4312")
	ev.GroundSpeed = 151.6
	ev.Wind = "270/12"
	ev.IsEmergencyOccuring = true

	change, err := s.UpsertTelemetry(NamespaceStandard, ev, t0)
	require.NoError(t, err)

	rec := change.Record
	assert.Equal(t, "B738", rec.Aircraft)
	assert.Equal(t, "Boeing 737", rec.AircraftType)
	assert.Equal(t, "Cessna-4312", rec.Callsign)
	assert.Equal(t, 152.0, rec.Telemetry.GroundSpeed)
	assert.Equal(t, "270/12", rec.Telemetry.Wind)
	assert.True(t, rec.Emergency)
	assert.Equal(t, t0, rec.LastSeen)
}

func TestEventsWithoutIdentityAreRejected(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry(NamespaceStandard, TelemetryEvent{SessionID: "Cessna-4312"}, t0)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = s.UpsertPlan(NamespaceStandard, PlanEvent{Callsign: "RFD123"}, t0)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	assert.Equal(t, 0, s.Count(NamespaceStandard))
}

func TestUnknownNamespace(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry("training", parkedTelemetry("alice", "x"), t0)
	assert.ErrorIs(t, err, ErrUnknownNamespace)
	assert.Empty(t, s.All("training"))
	assert.Equal(t, 0, s.Count("training"))
}

func TestNamespacesAreIndependent(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0)
	require.NoError(t, err)
	_, err = s.UpsertPlan(NamespaceEvent, PlanEvent{PlayerName: "alice", Callsign: "EVT1"}, t0)
	require.NoError(t, err)

	std, ok := s.KeyForPlayer(NamespaceStandard, "alice")
	require.True(t, ok)
	evt, ok := s.KeyForPlayer(NamespaceEvent, "alice")
	require.True(t, ok)
	assert.Equal(t, "RFD123", std)
	assert.Equal(t, "EVT1", evt)

	// Only the standard namespace keeps milestones
	_, ok = s.Timeline(NamespaceStandard, "RFD123")
	assert.True(t, ok)
	_, ok = s.Timeline(NamespaceEvent, "EVT1")
	assert.False(t, ok)
}

func TestCallsignClashKeepsLiveFlight(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName: "bob", Callsign: "RFD123", RealCallsign: "Cessna-1", Departing: "IRFD", Arriving: "ILAR",
	}, t0)
	require.NoError(t, err)

	climb := TelemetryEvent{SessionID: "Cessna-1", PlayerName: "bob", Speed: 320, Altitude: 2000}
	c, err := s.UpsertTelemetry(NamespaceStandard, climb, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, PhaseClimb, c.Record.Phase)

	// carol files the same callsign while bob is airborne
	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
		PlayerName: "carol", Callsign: "RFD123", RealCallsign: "Cessna-2", Departing: "IMLR",
	}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, change.Created)
	assert.Equal(t, "Cessna-2", change.Key)
	assert.Equal(t, "RFD123", change.Record.Callsign)

	climb.Altitude = 4000
	c, err = s.UpsertTelemetry(NamespaceStandard, climb, t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.False(t, c.Created)
	assert.Equal(t, "RFD123", c.Key)
	assert.Equal(t, PhaseClimb, c.Record.Phase)
	require.NotNil(t, c.Record.Plan)
	assert.Equal(t, "IRFD", c.Record.Plan.Origin)

	tl, ok := s.Timeline(NamespaceStandard, "RFD123")
	require.True(t, ok)
	assert.Equal(t, t0, tl.PlanFiled)
	assert.Equal(t, t0.Add(time.Minute), tl.Airborne)

	assert.Equal(t, 2, s.Count(NamespaceStandard))
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestCallsignClashFallsBackToPlayerKey(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "bob", Callsign: "RFD123", Departing: "IRFD"}, t0)
	require.NoError(t, err)

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "carol", Callsign: "RFD123", Departing: "IMLR"}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, change.Created)
	assert.Equal(t, "carol", change.Key)
	assert.Equal(t, "IMLR", change.Record.Plan.Origin)

	key, ok := s.KeyForPlayer(NamespaceStandard, "bob")
	require.True(t, ok)
	assert.Equal(t, "RFD123", key)
	rec, ok := s.Get(NamespaceStandard, "RFD123")
	require.True(t, ok)
	assert.Equal(t, "IRFD", rec.Plan.Origin)
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestEveryNaturalKeyTakenMintsSuffixedKey(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "x", Callsign: "dave"}, t0)
	require.NoError(t, err)

	change, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "dave", Callsign: "dave"}, t0)
	require.NoError(t, err)
	assert.True(t, change.Created)
	assert.Equal(t, "dave-2", change.Key)

	again, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("dave", "dave"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, "dave-2", again.Key)
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestPlayerIdentityIsAuthoritative(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("alice", "Cessna-4312"), t0)
	require.NoError(t, err)

	// A new session after respawn keeps feeding the same record
	change, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("alice", "Cessna-9900"), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "Cessna-4312", change.Key)
	assert.Equal(t, "Cessna-9900", change.Record.SessionID)
	assert.Equal(t, 1, s.Count(NamespaceStandard))
}

func TestDeleteRemovesBindingAndTimeline(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{PlayerName: "alice", Callsign: "RFD123"}, t0)
	require.NoError(t, err)

	assert.True(t, s.Delete(NamespaceStandard, "RFD123"))
	assert.False(t, s.Delete(NamespaceStandard, "RFD123"))

	_, ok := s.KeyForPlayer(NamespaceStandard, "alice")
	assert.False(t, ok)
	_, ok = s.Timeline(NamespaceStandard, "RFD123")
	assert.False(t, ok)
	requireIndexConsistent(t, s, NamespaceStandard)
}

func TestReadsReturnCopies(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("alice", "Cessna-4312"), t0)
	require.NoError(t, err)

	rec, ok := s.Get(NamespaceStandard, "Cessna-4312")
	require.True(t, ok)
	rec.Telemetry.Altitude = 99999
	rec.Callsign = "mutated"

	again, _ := s.Get(NamespaceStandard, "Cessna-4312")
	assert.Equal(t, 0.0, again.Telemetry.Altitude)
	assert.Equal(t, "Cessna-4312", again.Callsign)
}

func TestActiveAirports(t *testing.T) {
	s := newTestStore()

	for _, ev := range []PlanEvent{
		{PlayerName: "a", Callsign: "A1", Departing: "IRFD", Arriving: "ILAR"},
		{PlayerName: "b", Callsign: "B1", Departing: "IMLR", Arriving: "IRFD"},
	} {
		_, err := s.UpsertPlan(NamespaceStandard, ev, t0)
		require.NoError(t, err)
	}
	_, err := s.UpsertTelemetry(NamespaceStandard, parkedTelemetry("c", "C1"), t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"ILAR", "IMLR", "IRFD"}, s.ActiveAirports(NamespaceStandard))
	assert.Empty(t, s.ActiveAirports(NamespaceEvent))
}

func TestConcurrentIngestionAndReads(t *testing.T) {
	s := newTestStore()
	policy := StatsPolicyFromConfig(config.Default().Statistics)

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(3)

		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				player := fmt.Sprintf("pilot-%d-%d", w, i%10)
				ev := parkedTelemetry(player, fmt.Sprintf("Session-%d-%d", w, i%10))
				ev.Speed = float64(i % 20)
				_, err := s.UpsertTelemetry(NamespaceStandard, ev, t0.Add(time.Duration(i)*time.Second))
				assert.NoError(t, err)
			}
		}(w)

		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := s.UpsertPlan(NamespaceStandard, PlanEvent{
					PlayerName: fmt.Sprintf("pilot-%d-%d", w, i%10),
					Callsign:   fmt.Sprintf("RFD%d", i%15), // shared across workers
					Departing:  "IRFD",
					Arriving:   "ILAR",
				}, t0.Add(time.Duration(i)*time.Second))
				assert.NoError(t, err)
			}
		}(w)

		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				now := t0.Add(time.Duration(i) * time.Second)
				for key, rec := range s.All(NamespaceStandard) {
					assert.Equal(t, key, rec.Key)
				}
				s.ComputeOriginStats(NamespaceStandard, now, policy)
				s.ActiveAirports(NamespaceStandard)
				s.MarkStale(NamespaceStandard, now, 10*time.Second)
				if i%50 == 0 {
					s.Sweep(NamespaceStandard, now, 30*time.Minute, 2*time.Hour)
				}
			}
		}()
	}
	wg.Wait()

	requireIndexConsistent(t, s, NamespaceStandard)
	for key := range s.All(NamespaceStandard) {
		_, ok := s.Get(NamespaceStandard, key)
		assert.True(t, ok)
	}
}
