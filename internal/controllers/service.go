package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/pkg/logger"
)

// ErrNoData is returned when a pushed payload is empty
var ErrNoData = errors.New("no data provided")

// AirportSource lists the airports referenced by filed plans
type AirportSource interface {
	ActiveAirports() []string
}

// AirportSourceFunc adapts a function to AirportSource
type AirportSourceFunc func() []string

// ActiveAirports calls f
func (f AirportSourceFunc) ActiveAirports() []string {
	return f()
}

// Service polls the standard controller and ATIS lists and holds the event
// copies pushed over HTTP. Readers always get the last good snapshot.
type Service struct {
	client       *Client
	airports     AirportSource
	enabled      bool
	atcInterval  time.Duration
	atisInterval time.Duration
	logger       *logger.Logger

	mu             sync.RWMutex
	controllers    []Controller
	atis           ATISMap
	eventATC       json.RawMessage
	eventATIS      ATISMap
	lastATCUpdate  time.Time
	lastATISUpdate time.Time
	lastError      string

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewService creates a controller service. airports may be nil.
func NewService(cfg config.ControllersConfig, airports AirportSource, log *logger.Logger) *Service {
	return &Service{
		client:       NewClient(cfg, log),
		airports:     airports,
		enabled:      cfg.Enabled,
		atcInterval:  time.Duration(cfg.ATCIntervalSecs) * time.Second,
		atisInterval: time.Duration(cfg.ATISIntervalSecs) * time.Second,
		logger:       log.Named("controllers"),
		controllers:  []Controller{},
		atis:         ATISMap{},
		eventATC:     json.RawMessage("[]"),
		eventATIS:    ATISMap{},
		stopCh:       make(chan struct{}),
	}
}

// Start performs an initial fetch and starts the polling loop
func (s *Service) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("Controller polling disabled")
		return nil
	}

	s.logger.Info("Starting controller service",
		logger.Duration("atc_interval", s.atcInterval),
		logger.Duration("atis_interval", s.atisInterval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RefreshControllers(ctx)
		s.RefreshATIS(ctx)
		s.loop(ctx)
	}()
	return nil
}

// Stop stops polling and waits for an in-flight fetch
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Info("Controller service stopped")
}

func (s *Service) loop(ctx context.Context) {
	atcTicker := time.NewTicker(s.atcInterval)
	defer atcTicker.Stop()
	atisTicker := time.NewTicker(s.atisInterval)
	defer atisTicker.Stop()

	for {
		select {
		case <-atcTicker.C:
			s.RefreshControllers(ctx)
		case <-atisTicker.C:
			s.RefreshATIS(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RefreshControllers fetches and normalises the controller list. On failure
// the previous list is kept.
func (s *Service) RefreshControllers(ctx context.Context) {
	raw, err := s.client.FetchControllers(ctx)
	if err != nil {
		s.recordError("controllers", err)
		return
	}

	var active []string
	if s.airports != nil {
		active = s.airports.ActiveAirports()
	}
	normalized := NormalizeControllers(raw, active)

	s.mu.Lock()
	s.controllers = normalized
	s.lastATCUpdate = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Debug("Controller list updated", logger.Int("controllers", len(normalized)))
}

// RefreshATIS fetches the ATIS list. On failure the previous map is kept.
func (s *Service) RefreshATIS(ctx context.Context) {
	items, err := s.client.FetchATIS(ctx)
	if err != nil {
		s.recordError("atis", err)
		return
	}
	indexed := IndexATIS(items)

	s.mu.Lock()
	s.atis = indexed
	s.lastATISUpdate = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Debug("ATIS list updated", logger.Int("airports", len(indexed)))
}

func (s *Service) recordError(what string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	s.lastError = fmt.Sprintf("%s: %v", what, err)
	s.mu.Unlock()
	s.logger.Warn("Failed to refresh upstream data", logger.String("list", what), logger.Error(err))
}

// SetEventControllers replaces the event controller list. The payload is kept
// as sent; the returned count is its number of entries.
func (s *Service) SetEventControllers(payload json.RawMessage) (int, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	count := 0
	switch v := decoded.(type) {
	case []any:
		count = len(v)
	case map[string]any:
		count = len(v)
	}
	if count == 0 {
		return 0, ErrNoData
	}

	s.mu.Lock()
	s.eventATC = append(json.RawMessage(nil), payload...)
	s.mu.Unlock()

	s.logger.Info("Event controllers received", logger.Int("count", count))
	return count, nil
}

// SetEventATIS replaces the event ATIS map from a list of entries
func (s *Service) SetEventATIS(payload json.RawMessage) (int, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if len(items) == 0 {
		return 0, ErrNoData
	}
	indexed := IndexATIS(items)

	s.mu.Lock()
	s.eventATIS = indexed
	s.mu.Unlock()

	s.logger.Info("Event ATIS received", logger.Int("count", len(indexed)))
	return len(indexed), nil
}

// Controllers returns the standard controller list
func (s *Service) Controllers() []Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Controller, len(s.controllers))
	copy(out, s.controllers)
	return out
}

// ATIS returns the standard ATIS map
func (s *Service) ATIS() ATISMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyATIS(s.atis)
}

// EventControllers returns the pushed event controller payload
func (s *Service) EventControllers() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(json.RawMessage(nil), s.eventATC...)
}

// EventATIS returns the pushed event ATIS map
func (s *Service) EventATIS() ATISMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyATIS(s.eventATIS)
}

// GetStatus returns the poller status
func (s *Service) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Enabled:        s.enabled,
		LastATCUpdate:  s.lastATCUpdate,
		LastATISUpdate: s.lastATISUpdate,
		Controllers:    len(s.controllers),
		ATIS:           len(s.atis),
		LastError:      s.lastError,
	}
}

func copyATIS(m ATISMap) ATISMap {
	out := make(ATISMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
