package flights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yegors/flightdesk/internal/reference"
)

// namespace is one independent partition of flight records. Every field is
// guarded by mu; nothing inside is handed out without being copied first.
type namespace struct {
	name            Namespace
	trackMilestones bool

	mu         sync.RWMutex
	records    map[string]*FlightRecord
	identities identityIndex
	timelines  map[string]*Timeline
}

func newNamespace(name Namespace, trackMilestones bool) *namespace {
	return &namespace{
		name:            name,
		trackMilestones: trackMilestones,
		records:         make(map[string]*FlightRecord),
		identities:      newIdentityIndex(),
		timelines:       make(map[string]*Timeline),
	}
}

// Store holds the flight records of both namespaces
type Store struct {
	namespaces map[Namespace]*namespace
	engine     *PhaseEngine
}

// NewStore creates an empty store. Milestones are tracked for the standard namespace only.
func NewStore(engine *PhaseEngine) *Store {
	return &Store{
		namespaces: map[Namespace]*namespace{
			NamespaceStandard: newNamespace(NamespaceStandard, true),
			NamespaceEvent:    newNamespace(NamespaceEvent, false),
		},
		engine: engine,
	}
}

func (s *Store) namespace(ns Namespace) (*namespace, error) {
	n, ok := s.namespaces[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return n, nil
}

// UpsertTelemetry merges one telemetry entry into the record of its carrier and
// re-evaluates the phase.
func (s *Store) UpsertTelemetry(ns Namespace, ev TelemetryEvent, receivedAt time.Time) (*Change, error) {
	if ev.PlayerName == "" {
		return nil, ErrMissingIdentity
	}
	n, err := s.namespace(ns)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	key, created := n.resolveKey(ev.PlayerName, ev.SessionID)
	rec := n.records[key]
	if created {
		rec = &FlightRecord{Key: key, Phase: PhaseBoarding, PreviousPhase: PhaseBoarding}
		n.records[key] = rec
	}
	n.identities.bind(ev.PlayerName, key)

	rec.PlayerName = ev.PlayerName
	if ev.SessionID != "" {
		rec.SessionID = ev.SessionID
	}
	if rec.Callsign == "" {
		rec.Callsign = rec.SessionID
	}
	rec.AircraftType = ev.AircraftType
	rec.Aircraft = reference.ShortAircraftName(ev.AircraftType)
	rec.Telemetry = &Telemetry{
		Heading:     ev.Heading,
		Altitude:    ev.Altitude,
		Speed:       ev.Speed,
		GroundSpeed: math.Round(ev.GroundSpeed),
		Position:    ev.Position,
		Wind:        string(ev.Wind),
		OnGround:    ev.IsOnGround,
		Emergency:   ev.IsEmergencyOccuring,
	}
	rec.Emergency = ev.IsEmergencyOccuring
	rec.Live = true
	rec.DataValid = true
	rec.LastSeen = receivedAt

	change := &Change{Namespace: ns, Key: key, Created: created, From: rec.Phase, To: rec.Phase}

	if next, ok := s.engine.Infer(rec.Phase, rec.Telemetry, rec.Plan); ok && next != rec.Phase {
		rec.PreviousPhase = rec.Phase
		rec.Phase = next
		change.PhaseChanged = true
		change.To = next
	}
	rec.PhaseName = rec.Phase.String()

	if n.trackMilestones {
		tl := n.timeline(key, receivedAt)
		tl.observe(change.From, change.To, receivedAt)
	}

	change.Record = rec.Clone()
	return change, nil
}

// UpsertPlan replaces the plan of the carrier's record, creating the record if needed
func (s *Store) UpsertPlan(ns Namespace, ev PlanEvent, receivedAt time.Time) (*Change, error) {
	if ev.PlayerName == "" {
		return nil, ErrMissingIdentity
	}
	n, err := s.namespace(ns)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	key, created := n.resolveKey(ev.PlayerName, ev.Callsign, ev.RealCallsign)
	rec := n.records[key]
	if created {
		rec = &FlightRecord{
			Key:           key,
			Phase:         PhaseBoarding,
			PreviousPhase: PhaseBoarding,
			PhaseName:     PhaseBoarding.String(),
		}
		n.records[key] = rec
	}
	n.identities.bind(ev.PlayerName, key)

	// A refiled plan replaces the old one entirely
	rec.Plan = &FlightPlan{
		Origin:       defaultString(strings.TrimSpace(ev.Departing), reference.UnknownAirport),
		Destination:  defaultString(strings.TrimSpace(ev.Arriving), reference.UnknownAirport),
		Level:        ParseFlightLevel(string(ev.FlightLevel)),
		Route:        defaultString(ev.Route, "N/A"),
		Rules:        ev.FlightRules,
		FiledAt:      receivedAt,
		FiledDisplay: filedDisplay(receivedAt),
	}

	rec.PlayerName = ev.PlayerName
	if ev.RealCallsign != "" {
		rec.SessionID = ev.RealCallsign
	}
	rec.Callsign = defaultString(ev.Callsign, rec.SessionID)
	if ev.Aircraft != "" {
		rec.AircraftType = ev.Aircraft
		rec.Aircraft = reference.ShortAircraftName(ev.Aircraft)
	}
	rec.Emergency = ev.IsEmergencyOccuring
	if created {
		rec.Live = false
	}

	if n.trackMilestones {
		tl := n.timeline(key, receivedAt)
		if tl.PlanFiled.IsZero() {
			tl.PlanFiled = receivedAt
		}
		tl.LastUpdate = receivedAt
	}

	return &Change{
		Namespace: ns,
		Key:       key,
		Created:   created,
		From:      rec.Phase,
		To:        rec.Phase,
		Record:    rec.Clone(),
	}, nil
}

// timeline returns the milestone timeline for key, creating it if needed. Caller holds n.mu.
func (n *namespace) timeline(key string, now time.Time) *Timeline {
	tl, ok := n.timelines[key]
	if !ok {
		tl = &Timeline{Created: now, LastUpdate: now}
		n.timelines[key] = tl
	}
	return tl
}

// Get returns a copy of one record
func (s *Store) Get(ns Namespace, key string) (*FlightRecord, bool) {
	n, err := s.namespace(ns)
	if err != nil {
		return nil, false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	rec, ok := n.records[key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// KeyForPlayer returns the flight key bound to a player identity
func (s *Store) KeyForPlayer(ns Namespace, player string) (string, bool) {
	n, err := s.namespace(ns)
	if err != nil {
		return "", false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.identities.lookup(player)
}

// All returns a copy of every record in a namespace, keyed by flight key
func (s *Store) All(ns Namespace) map[string]*FlightRecord {
	out := make(map[string]*FlightRecord)
	n, err := s.namespace(ns)
	if err != nil {
		return out
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for key, rec := range n.records {
		out[key] = rec.Clone()
	}
	return out
}

// Count returns the number of records in a namespace
func (s *Store) Count(ns Namespace) int {
	n, err := s.namespace(ns)
	if err != nil {
		return 0
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.records)
}

// Delete removes a record together with its identity binding and timeline
func (s *Store) Delete(ns Namespace, key string) bool {
	n, err := s.namespace(ns)
	if err != nil {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.deleteLocked(key)
	return ok
}

func (n *namespace) deleteLocked(key string) (*FlightRecord, bool) {
	rec, ok := n.records[key]
	if !ok {
		return nil, false
	}
	n.identities.unbind(rec.PlayerName, key)
	delete(n.records, key)
	delete(n.timelines, key)
	return rec, true
}

// Timeline returns a copy of the milestone timeline for key
func (s *Store) Timeline(ns Namespace, key string) (Timeline, bool) {
	n, err := s.namespace(ns)
	if err != nil {
		return Timeline{}, false
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	tl, ok := n.timelines[key]
	if !ok {
		return Timeline{}, false
	}
	return *tl, true
}

// ActiveAirports returns the sorted set of origins and destinations of records
// carrying both
func (s *Store) ActiveAirports(ns Namespace) []string {
	n, err := s.namespace(ns)
	if err != nil {
		return nil
	}

	n.mu.RLock()
	seen := make(map[string]bool)
	for _, rec := range n.records {
		if rec.Plan == nil || rec.Plan.Origin == "" || rec.Plan.Destination == "" {
			continue
		}
		seen[rec.Plan.Origin] = true
		seen[rec.Plan.Destination] = true
	}
	n.mu.RUnlock()

	airports := make([]string, 0, len(seen))
	for a := range seen {
		airports = append(airports, a)
	}
	sort.Strings(airports)
	return airports
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
