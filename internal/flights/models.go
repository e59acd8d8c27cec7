package flights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Namespace is one of the two independent data partitions
type Namespace string

const (
	NamespaceStandard Namespace = "standard"
	NamespaceEvent    Namespace = "event"
)

// Namespaces lists every namespace in a stable order
var Namespaces = []Namespace{NamespaceStandard, NamespaceEvent}

var (
	// ErrMissingIdentity is returned for events without a player identity
	ErrMissingIdentity = errors.New("event has no player identity")
	// ErrUnknownMessageType is returned for envelopes with an unsupported "t"
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedPayload is returned when an envelope or payload cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownNamespace is returned for namespaces the store does not hold
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// Phase is the inferred flight state
type Phase int

const (
	PhaseBoarding Phase = iota
	PhaseTaxi
	PhaseClimb
	PhaseCruise
	PhaseDescent
	PhaseArrived
	PhaseTraining
)

var phaseNames = [...]string{
	PhaseBoarding: "Boarding",
	PhaseTaxi:     "Taxiing",
	PhaseClimb:    "Climbing",
	PhaseCruise:   "Cruising",
	PhaseDescent:  "Descending",
	PhaseArrived:  "Arrived",
	PhaseTraining: "Training",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// Airborne reports whether the phase belongs to the airborne progression.
// Training is excluded: it is an override, not part of the progression.
func (p Phase) Airborne() bool {
	return p == PhaseClimb || p == PhaseCruise || p == PhaseDescent
}

// Position is a point on the simulator map
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LooseString is a text field the upstream sends either as a JSON string or as a
// bare number (wind "270/12" vs 270, flight level "FL350" vs 350). The raw text is kept.
type LooseString string

// UnmarshalJSON accepts a JSON string, number, bool or null
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("%w: expected scalar, got %s", ErrMalformedPayload, data[:1])
	}
	*s = LooseString(data)
	return nil
}

// Telemetry is the latest position report for a flight
type Telemetry struct {
	Heading     float64  `json:"heading"`
	Altitude    float64  `json:"altitude"`     // feet
	Speed       float64  `json:"speed"`        // indicated, knots
	GroundSpeed float64  `json:"ground_speed"` // knots, rounded
	Position    Position `json:"position"`
	Wind        string   `json:"wind"`
	OnGround    bool     `json:"is_on_ground"`
	Emergency   bool     `json:"is_emergency"`
}

// FlightPlan is the latest filed plan for a flight
type FlightPlan struct {
	Origin       string    `json:"departure"`
	Destination  string    `json:"arrival"`
	Level        int       `json:"flight_level"` // feet
	Route        string    `json:"route"`
	Rules        string    `json:"flightrules"`
	FiledAt      time.Time `json:"filed_at"`
	FiledDisplay string    `json:"fpl_created_time"` // HH:MMz
}

// RoundTrip reports whether the plan departs from and returns to the same airport
func (p *FlightPlan) RoundTrip() bool {
	return p.Origin != "" && p.Origin == p.Destination
}

// FlightRecord is the merged view of one flight
type FlightRecord struct {
	Key           string      `json:"key"`          // Flight key, immutable once assigned
	PlayerName    string      `json:"player_name"`  // Primary identity
	SessionID     string      `json:"realcallsign"` // Raw session identity from the stream
	Callsign      string      `json:"cs"`           // Display callsign
	AircraftType  string      `json:"aircraft_type"`
	Aircraft      string      `json:"aircraft"` // Short type designator
	Telemetry     *Telemetry  `json:"telemetry,omitempty"`
	Plan          *FlightPlan `json:"plan,omitempty"`
	Live          bool        `json:"live"`
	DataValid     bool        `json:"data_valid"` // Telemetry has been seen at least once
	LastSeen      time.Time   `json:"last_seen"`  // Last telemetry observation
	Phase         Phase       `json:"state"`
	PhaseName     string      `json:"state_name"`
	PreviousPhase Phase       `json:"previous_state"` // Phase before the most recent transition
	Emergency     bool        `json:"is_emergency"`
}

// Clone returns a deep copy that shares nothing with the receiver
func (r *FlightRecord) Clone() *FlightRecord {
	c := *r
	if r.Telemetry != nil {
		t := *r.Telemetry
		c.Telemetry = &t
	}
	if r.Plan != nil {
		p := *r.Plan
		c.Plan = &p
	}
	return &c
}

// LastActivity is the latest of the last telemetry and the plan filing
func (r *FlightRecord) LastActivity() time.Time {
	last := r.LastSeen
	if r.Plan != nil && r.Plan.FiledAt.After(last) {
		last = r.Plan.FiledAt
	}
	return last
}

// Timeline holds the one-shot milestone timestamps of a flight. A zero time means unset.
type Timeline struct {
	Created    time.Time `json:"created"`
	PlanFiled  time.Time `json:"plan_filed"`
	TaxiStart  time.Time `json:"taxi_start"`
	Airborne   time.Time `json:"airborne"`
	LastUpdate time.Time `json:"last_update"`
}

// TelemetryEvent is one entry of an ACFT_DATA payload
type TelemetryEvent struct {
	SessionID           string      `json:"-"` // key of the payload map
	PlayerName          string      `json:"playerName"`
	Heading             float64     `json:"heading"`
	Altitude            float64     `json:"altitude"`
	AircraftType        string      `json:"aircraftType"`
	Position            Position    `json:"position"`
	Speed               float64     `json:"speed"`
	GroundSpeed         float64     `json:"groundSpeed"`
	Wind                LooseString `json:"wind"`
	IsOnGround          bool        `json:"isOnGround"`
	IsEmergencyOccuring bool        `json:"isEmergencyOccuring"`
}

// PlanEvent is a FLIGHT_PLAN payload
type PlanEvent struct {
	PlayerName          string      `json:"robloxName"`
	Callsign            string      `json:"callsign"`
	RealCallsign        string      `json:"realcallsign"`
	Departing           string      `json:"departing"`
	Arriving            string      `json:"arriving"`
	FlightLevel         LooseString `json:"flightlevel"`
	Aircraft            string      `json:"aircraft"`
	FlightRules         string      `json:"flightrules"`
	Route               string      `json:"route"`
	IsEmergencyOccuring bool        `json:"isEmergencyOccuring"`
}

// Change describes the effect of one applied event
type Change struct {
	Namespace    Namespace     `json:"namespace"`
	Key          string        `json:"key"`
	Created      bool          `json:"created"`
	PhaseChanged bool          `json:"phase_changed"`
	From         Phase         `json:"from"`
	To           Phase         `json:"to"`
	Record       *FlightRecord `json:"record"` // snapshot after the change
}

// OriginStats holds duration samples for one departure airport
type OriginStats struct {
	OffBlockMinutes    []float64 `json:"obt_times"`
	TaxiMinutes        []float64 `json:"taxi_times"`
	AvgOffBlockMinutes float64   `json:"avg_obt_time"`
	AvgTaxiMinutes     float64   `json:"avg_taxi_time"`
}
