package ws_test

import (
	"testing"

	"github.com/Keekuun/nexus-studio-sub001/internal/ws"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	t.Parallel()

	conn := newMockConn()
	client := ws.NewClient("c1", conn)

	err := client.Send(ws.Message{Type: ws.MessageTypePong})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := conn.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	if messages[0].Type != ws.MessageTypePong {
		t.Errorf("expected pong type, got %s", messages[0].Type)
	}
}

func TestClient_SendError(t *testing.T) {
	t.Parallel()

	conn := newMockConn()
	client := ws.NewClient("c1", conn)

	err := client.SendError(ws.ErrorCodeInvalidMessage, "bad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := conn.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	if messages[0].Type != ws.MessageTypeError {
		t.Errorf("expected error type, got %s", messages[0].Type)
	}
}

func TestClient_Receive(t *testing.T) {
	t.Parallel()

	conn := newMockConn()
	client := ws.NewClient("c1", conn)

	conn.incoming <- map[string]any{"type": "subscribe", "payload": map[string]any{"nodeId": "n1"}}
	conn.incoming <- map[string]any{"type": "unsubscribe", "payload": map[string]any{"nodeId": "n1"}}
	conn.incoming <- map[string]any{"type": "ping"}
	conn.incoming <- map[string]any{"type": "unsubscribe"}
	conn.incoming <- map[string]any{"type": "subscribe", "payload": "not an object"}
	close(conn.incoming)

	msg, err := client.Receive()
	require.NoError(t, err)
	require.Equal(t, ws.MessageTypeSubscribe, msg.Type)
	require.Equal(t, ws.NodePayload{NodeID: "n1"}, msg.Payload)

	msg, err = client.Receive()
	require.NoError(t, err)
	require.Equal(t, ws.MessageTypeUnsubscribe, msg.Type)

	msg, err = client.Receive()
	require.NoError(t, err)
	require.Equal(t, ws.MessageTypePing, msg.Type)
	require.Nil(t, msg.Payload)

	msg, err = client.Receive()
	require.NoError(t, err, "missing payload")
	require.Equal(t, ws.MessageTypeUnsubscribe, msg.Type)
	require.Equal(t, ws.NodePayload{}, msg.Payload)

	_, err = client.Receive()
	require.Error(t, err, "malformed payload")

	_, err = client.Receive()
	require.ErrorIs(t, err, errConnClosed)
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	conn := newMockConn()
	client := ws.NewClient("c1", conn)

	err := client.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !conn.IsClosed() {
		t.Error("expected connection to be closed")
	}
}

func TestClient_NodeID(t *testing.T) {
	t.Parallel()

	client := ws.NewClient("c1", newMockConn())

	if client.NodeID() != "" {
		t.Errorf("expected empty nodeID, got %s", client.NodeID())
	}

	client.SetNodeID("n1")

	if client.NodeID() != "n1" {
		t.Errorf("expected n1, got %s", client.NodeID())
	}
}
