package flights

import (
	"fmt"

	"github.com/yegors/flightdesk/internal/websocket"
	"github.com/yegors/flightdesk/pkg/logger"
)

// WebSocketHandler answers dashboard requests on the websocket hub
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("flights-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeSubscribe:
		return h.handleSubscribe(client, data)
	case websocket.MessageTypeSnapshot:
		return h.sendSnapshot(client, Namespace(client.Namespace()))
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

// handleSubscribe switches the client to a namespace and sends its current records
func (h *WebSocketHandler) handleSubscribe(client *websocket.Client, data map[string]any) error {
	raw, _ := data["namespace"].(string)
	ns := Namespace(raw)
	if ns == "" {
		ns = NamespaceStandard
	}
	if _, err := h.service.Store().namespace(ns); err != nil {
		return err
	}

	client.SetNamespace(string(ns))
	h.logger.Debug("Client subscribed", logger.String("namespace", string(ns)))

	return h.sendSnapshot(client, ns)
}

func (h *WebSocketHandler) sendSnapshot(client *websocket.Client, ns Namespace) error {
	if ns == "" {
		ns = NamespaceStandard
	}
	records := h.service.Records(ns)

	message := &websocket.Message{
		Type: websocket.MessageTypeSnapshot,
		Data: map[string]any{
			"namespace": string(ns),
			"flights":   records,
			"count":     len(records),
		},
	}
	return h.sendToClient(client, message)
}

// sendToClient sends a message to a specific client
func (h *WebSocketHandler) sendToClient(client *websocket.Client, message *websocket.Message) error {
	if !client.SendMessage(message) {
		return fmt.Errorf("client send buffer unavailable for %s", message.Type)
	}
	return nil
}
