package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightdesk/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastRespectsNamespace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(logger.NewNop())
	go s.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(s.HandleConnection))
	defer srv.Close()

	all := dial(t, srv, "")
	event := dial(t, srv, "?namespace=event")
	require.Eventually(t, func() bool { return s.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	s.Broadcast(&Message{Type: MessageTypeFlightAdded, Data: map[string]any{"namespace": "standard", "key": "RFD1"}})
	s.Broadcast(&Message{Type: MessageTypeFlightRemoved, Data: map[string]any{"namespace": "event", "key": "EVT1"}})

	first := readMessage(t, all)
	assert.Equal(t, MessageTypeFlightAdded, first.Type)
	assert.Equal(t, "RFD1", first.Data["key"])
	second := readMessage(t, all)
	assert.Equal(t, MessageTypeFlightRemoved, second.Type)

	only := readMessage(t, event)
	assert.Equal(t, MessageTypeFlightRemoved, only.Type)
	assert.Equal(t, "EVT1", only.Data["key"])
}

type echoHandler struct{}

func (echoHandler) HandleMessage(client *Client, messageType string, data map[string]any) error {
	client.SetNamespace("event")
	client.SendMessage(&Message{Type: MessageTypeSnapshot, Data: map[string]any{"echo": messageType, "namespace": client.Namespace()}})
	return nil
}

func TestIncomingMessagesReachHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(logger.NewNop())
	s.SetMessageHandler(echoHandler{})
	go s.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(s.HandleConnection))
	defer srv.Close()

	conn := dial(t, srv, "")
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe, Data: map[string]any{}}))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	assert.Equal(t, MessageTypeSubscribe, msg.Data["echo"])
	assert.Equal(t, "event", msg.Data["namespace"])
}

func TestBroadcastAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(logger.NewNop())

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < sendBuffer+10; i++ {
		s.Broadcast(&Message{Type: MessageTypeFlightUpdated})
	}
	assert.Equal(t, 0, s.ClientCount())
}
