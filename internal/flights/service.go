package flights

/*
FLIGHT INGESTION OVERVIEW
=========================

1. The stream client hands every raw frame to Service.HandleMessage.
2. The envelope type ("t") picks the namespace and the payload kind:
   ACFT_DATA / FLIGHT_PLAN go to the standard namespace,
   EVENT_ACFT_DATA / EVENT_FLIGHT_PLAN to the event namespace.
3. Telemetry batches are split per session. Each entry, and each plan, goes
   through the Store, which resolves the carrier identity to a flight key,
   infers the phase and records milestones under the namespace lock.
4. Every applied change is pushed to dashboard clients. Accepted plans are
   written to the plan cache so they survive a restart.

The reaper runs beside ingestion on its own timers and reports deletions back
here, so removals reach dashboards and the plan cache as well.

A bad frame or a bad telemetry entry costs exactly that frame or entry.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/internal/websocket"
	"github.com/yegors/flightdesk/pkg/logger"
)

// Envelope message types
const (
	MessageTypeTelemetry      = "ACFT_DATA"
	MessageTypePlan           = "FLIGHT_PLAN"
	MessageTypeEventTelemetry = "EVENT_ACFT_DATA"
	MessageTypeEventPlan      = "EVENT_FLIGHT_PLAN"
)

// Envelope is the stream frame wrapper
type Envelope struct {
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
}

// WebSocketServer receives dashboard updates
type WebSocketServer interface {
	Broadcast(message *websocket.Message)
}

// CachedPlan is a plan event restored from the plan cache
type CachedPlan struct {
	Namespace Namespace
	Event     PlanEvent
	FiledAt   time.Time
}

// PlanCache persists accepted plan events across restarts
type PlanCache interface {
	SavePlan(ctx context.Context, ns Namespace, ev PlanEvent, filedAt time.Time) error
	DeletePlan(ctx context.Context, ns Namespace, playerName string) error
	LoadPlans(ctx context.Context, since time.Time) ([]CachedPlan, error)
}

// Service ingests stream events into the flight store
type Service struct {
	store     *Store
	engine    *PhaseEngine
	reaper    *Reaper
	wsServer  WebSocketServer
	planCache PlanCache
	stats     StatsPolicy
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time

	mu            sync.RWMutex
	lastMessageAt time.Time
	messages      int64
	dropped       int64
}

// NewService wires the store, phase engine and reaper. wsServer and planCache may be nil.
func NewService(cfg *config.Config, wsServer WebSocketServer, planCache PlanCache, log *logger.Logger) *Service {
	engine := NewPhaseEngine(cfg.FlightPhases)
	s := &Service{
		store:     NewStore(engine),
		engine:    engine,
		wsServer:  wsServer,
		planCache: planCache,
		stats:     StatsPolicyFromConfig(cfg.Statistics),
		retention: time.Duration(cfg.Staleness.RetentionMinutes) * time.Minute,
		logger:    log.Named("flights"),
		now:       time.Now,
	}
	s.reaper = NewReaper(s.store, cfg.Staleness, s.handleRemoval, log)
	return s
}

// Store returns the underlying flight store
func (s *Service) Store() *Store {
	return s.store
}

// Reaper returns the staleness reaper
func (s *Service) Reaper() *Reaper {
	return s.reaper
}

// Start restores cached plans and starts the reaper
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting flight service",
		logger.String("cruise_policy", string(s.engine.Policy())),
		logger.Duration("stats_window", s.stats.Window))

	if err := s.RestorePlans(ctx); err != nil {
		// A broken cache only costs us the restart aid
		s.logger.Warn("Failed to restore cached flight plans", logger.Error(err))
	}

	s.reaper.Start(ctx)
	return nil
}

// Stop stops the reaper
func (s *Service) Stop() {
	s.logger.Info("Stopping flight service")
	s.reaper.Stop()
}

// HandleMessage decodes and applies one raw stream frame
func (s *Service) HandleMessage(ctx context.Context, raw []byte) error {
	receivedAt := s.now().UTC()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.countDropped()
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	s.mu.Lock()
	s.lastMessageAt = receivedAt
	s.messages++
	s.mu.Unlock()

	if err := s.HandleEnvelope(ctx, env, receivedAt); err != nil {
		s.countDropped()
		return err
	}
	return nil
}

// HandleEnvelope routes a decoded envelope to its namespace
func (s *Service) HandleEnvelope(ctx context.Context, env Envelope, receivedAt time.Time) error {
	switch env.Type {
	case MessageTypeTelemetry:
		return s.applyTelemetryBatch(NamespaceStandard, env.Data, receivedAt)
	case MessageTypeEventTelemetry:
		return s.applyTelemetryBatch(NamespaceEvent, env.Data, receivedAt)
	case MessageTypePlan:
		return s.applyPlan(ctx, NamespaceStandard, env.Data, receivedAt)
	case MessageTypeEventPlan:
		return s.applyPlan(ctx, NamespaceEvent, env.Data, receivedAt)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

// applyTelemetryBatch applies every entry of an ACFT_DATA payload. Bad entries
// are skipped individually; the batch only fails if the payload is not an object.
func (s *Service) applyTelemetryBatch(ns Namespace, payload json.RawMessage, receivedAt time.Time) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return fmt.Errorf("%w: telemetry payload: %v", ErrMalformedPayload, err)
	}

	s.store.MarkStale(ns, receivedAt, s.reaper.LivenessTimeout())

	sessions := make([]string, 0, len(entries))
	for session := range entries {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)

	for _, session := range sessions {
		var ev TelemetryEvent
		if err := json.Unmarshal(entries[session], &ev); err != nil {
			s.countDropped()
			s.logger.Warn("Dropping malformed telemetry entry",
				logger.String("namespace", string(ns)),
				logger.String("session", session),
				logger.Error(err))
			continue
		}
		ev.SessionID = session

		change, err := s.store.UpsertTelemetry(ns, ev, receivedAt)
		if err != nil {
			s.countDropped()
			s.logger.Debug("Dropping telemetry entry",
				logger.String("namespace", string(ns)),
				logger.String("session", session),
				logger.Error(err))
			continue
		}

		if change.PhaseChanged {
			s.logger.Info("Phase change detected",
				logger.String("namespace", string(ns)),
				logger.String("key", change.Key),
				logger.String("transition", change.From.String()+" → "+change.To.String()))
		}
		s.broadcastChange(change)
	}
	return nil
}

// applyPlan applies a FLIGHT_PLAN payload
func (s *Service) applyPlan(ctx context.Context, ns Namespace, payload json.RawMessage, receivedAt time.Time) error {
	var ev PlanEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: flight plan: %v", ErrMalformedPayload, err)
	}

	change, err := s.store.UpsertPlan(ns, ev, receivedAt)
	if err != nil {
		return err
	}

	s.logger.Info("Flight plan filed",
		logger.String("namespace", string(ns)),
		logger.String("key", change.Key),
		logger.String("player", ev.PlayerName),
		logger.String("route", change.Record.Plan.Origin+" → "+change.Record.Plan.Destination),
		logger.Int("level", change.Record.Plan.Level),
		logger.Bool("new_record", change.Created))

	if s.planCache != nil {
		if err := s.planCache.SavePlan(ctx, ns, ev, receivedAt); err != nil {
			s.logger.Warn("Failed to cache flight plan", logger.String("key", change.Key), logger.Error(err))
		}
	}

	s.broadcastChange(change)
	return nil
}

// RestorePlans replays cached plans filed within the retention window
func (s *Service) RestorePlans(ctx context.Context) error {
	if s.planCache == nil {
		return nil
	}

	since := s.now().UTC().Add(-s.retention)
	plans, err := s.planCache.LoadPlans(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to load cached plans: %w", err)
	}

	restored := 0
	for _, p := range plans {
		if _, err := s.store.UpsertPlan(p.Namespace, p.Event, p.FiledAt); err != nil {
			s.logger.Warn("Skipping cached flight plan",
				logger.String("namespace", string(p.Namespace)),
				logger.String("player", p.Event.PlayerName),
				logger.Error(err))
			continue
		}
		restored++
	}

	s.logger.Info("Restored cached flight plans", logger.Int("count", restored))
	return nil
}

// handleRemoval is called by the reaper for every deleted record
func (s *Service) handleRemoval(ns Namespace, rec *FlightRecord) {
	if s.planCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.planCache.DeletePlan(ctx, ns, rec.PlayerName); err != nil {
			s.logger.Warn("Failed to drop cached flight plan", logger.String("key", rec.Key), logger.Error(err))
		}
		cancel()
	}

	if s.wsServer != nil {
		s.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeFlightRemoved,
			Data: map[string]any{
				"namespace": string(ns),
				"key":       rec.Key,
			},
		})
	}
}

func (s *Service) broadcastChange(change *Change) {
	if s.wsServer == nil {
		return
	}

	msgType := websocket.MessageTypeFlightUpdated
	if change.Created {
		msgType = websocket.MessageTypeFlightAdded
	}
	s.wsServer.Broadcast(&websocket.Message{
		Type: msgType,
		Data: map[string]any{
			"namespace":     string(change.Namespace),
			"key":           change.Key,
			"flight":        change.Record,
			"phase_changed": change.PhaseChanged,
		},
	})
}

func (s *Service) countDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Records returns a snapshot of every record in a namespace
func (s *Service) Records(ns Namespace) map[string]*FlightRecord {
	return s.store.All(ns)
}

// Record returns a snapshot of one record
func (s *Service) Record(ns Namespace, key string) (*FlightRecord, bool) {
	return s.store.Get(ns, key)
}

// OriginStats returns the per-origin duration statistics of a namespace
func (s *Service) OriginStats(ns Namespace) map[string]*OriginStats {
	return s.store.ComputeOriginStats(ns, s.now().UTC(), s.stats)
}

// ActiveAirports returns the airports referenced by filed plans in a namespace
func (s *Service) ActiveAirports(ns Namespace) []string {
	return s.store.ActiveAirports(ns)
}

// Status summarises ingestion for health reporting
type Status struct {
	LastMessageAt time.Time         `json:"last_message_at"`
	Messages      int64             `json:"messages"`
	Dropped       int64             `json:"dropped"`
	Records       map[Namespace]int `json:"records"`
}

// GetStatus returns ingestion counters and record counts
func (s *Service) GetStatus() Status {
	s.mu.RLock()
	st := Status{
		LastMessageAt: s.lastMessageAt,
		Messages:      s.messages,
		Dropped:       s.dropped,
	}
	s.mu.RUnlock()

	st.Records = make(map[Namespace]int, len(Namespaces))
	for _, ns := range Namespaces {
		st.Records[ns] = s.store.Count(ns)
	}
	return st
}

// IsDropped reports whether err came from a dropped event rather than a fault in the service
func IsDropped(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrMissingIdentity) ||
		errors.Is(err, ErrUnknownMessageType)
}
