package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/flightdesk/internal/controllers"
	"github.com/yegors/flightdesk/internal/flights"
	"github.com/yegors/flightdesk/internal/stream"
	"github.com/yegors/flightdesk/pkg/logger"
)

// maxPushBytes bounds the body of event push requests
const maxPushBytes = 1 << 20

// FlightSource serves flight records and statistics
type FlightSource interface {
	Records(ns flights.Namespace) map[string]*flights.FlightRecord
	Record(ns flights.Namespace, key string) (*flights.FlightRecord, bool)
	OriginStats(ns flights.Namespace) map[string]*flights.OriginStats
	GetStatus() flights.Status
}

// ControllerSource serves controller and ATIS lists and accepts event pushes
type ControllerSource interface {
	Controllers() []controllers.Controller
	ATIS() controllers.ATISMap
	EventControllers() json.RawMessage
	EventATIS() controllers.ATISMap
	SetEventControllers(payload json.RawMessage) (int, error)
	SetEventATIS(payload json.RawMessage) (int, error)
	GetStatus() controllers.Status
}

// StreamStatus reports the upstream feed connection
type StreamStatus interface {
	GetStatus() stream.Status
}

// Hub is the dashboard websocket endpoint
type Hub interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Handler contains the API handlers
type Handler struct {
	flights     FlightSource
	controllers ControllerSource
	stream      StreamStatus
	hub         Hub
	version     string
	startedAt   time.Time
	logger      *logger.Logger
}

// NewHandler creates a new API handler. stream and hub may be nil.
func NewHandler(flightSource FlightSource, controllerSource ControllerSource, streamStatus StreamStatus, hub Hub, version string, log *logger.Logger) *Handler {
	return &Handler{
		flights:     flightSource,
		controllers: controllerSource,
		stream:      streamStatus,
		hub:         hub,
		version:     version,
		startedAt:   time.Now().UTC(),
		logger:      log.Named("api-handler"),
	}
}

// GetRecords returns every record of a namespace keyed by flight key
func (h *Handler) GetRecords(ns flights.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, h.flights.Records(ns))
	}
}

// GetRecord returns one record by flight key
func (h *Handler) GetRecord(ns flights.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		rec, ok := h.flights.Record(ns, key)
		if !ok {
			WriteError(w, http.StatusNotFound, "Flight not found")
			return
		}
		WriteJSON(w, http.StatusOK, rec)
	}
}

// GetOriginStats returns the per-origin duration statistics of a namespace
func (h *Handler) GetOriginStats(ns flights.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, h.flights.OriginStats(ns))
	}
}

// GetControllers returns the standard controller list
func (h *Handler) GetControllers(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.controllers.Controllers())
}

// GetEventControllers returns the pushed event controller payload as it was received
func (h *Handler) GetEventControllers(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.controllers.EventControllers())
}

// GetATIS returns the standard ATIS map
func (h *Handler) GetATIS(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.controllers.ATIS())
}

// GetEventATIS returns the event ATIS map
func (h *Handler) GetEventATIS(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.controllers.EventATIS())
}

// PushEventControllers replaces the event controller list
func (h *Handler) PushEventControllers(w http.ResponseWriter, r *http.Request) {
	h.push(w, r, "controllers", h.controllers.SetEventControllers)
}

// PushEventATIS replaces the event ATIS map
func (h *Handler) PushEventATIS(w http.ResponseWriter, r *http.Request) {
	h.push(w, r, "atis", h.controllers.SetEventATIS)
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request, what string, apply func(json.RawMessage) (int, error)) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	if err != nil {
		h.logger.Warn("Failed to read event push", logger.String("list", what), logger.Error(err))
		WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}

	count, err := apply(body)
	if err != nil {
		if errors.Is(err, controllers.ErrNoData) {
			WriteError(w, http.StatusBadRequest, "No data provided")
			return
		}
		h.logger.Error("Failed to apply event push", logger.String("list", what), logger.Error(err))
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("Event data received",
		logger.String("list", what),
		logger.Int("count", count),
		logger.String("remote_addr", r.RemoteAddr))

	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  count,
	})
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ingest := h.flights.GetStatus()

	status := "ok"
	response := map[string]any{
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"ingest":         ingest,
		"controllers":    h.controllers.GetStatus(),
	}

	if h.stream != nil {
		st := h.stream.GetStatus()
		response["stream"] = st
		if !st.Connected {
			status = "degraded"
		}
	}
	if h.hub != nil {
		response["dashboard_clients"] = h.hub.ClientCount()
	}
	response["status"] = status

	WriteJSON(w, http.StatusOK, response)
}

// HandleWebSocket upgrades a dashboard connection
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "WebSocket hub not running")
		return
	}
	h.hub.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error body
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
