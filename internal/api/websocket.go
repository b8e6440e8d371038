package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Keekuun/nexus-studio-sub001/internal/ws"
)

// handleWebSocket handles GET /ws[?nodeId={id}]. Clients follow one node at a
// time and receive its comments as they are created.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")

		return
	}

	s.streams.Add(1)
	defer s.streams.Done()

	client, cleanup, err := s.setupWebSocketClient(w, r)
	if err != nil {
		return
	}

	defer cleanup()

	ctx := r.Context()

	if nodeID := r.URL.Query().Get("nodeId"); nodeID != "" {
		if err := s.subscribe(ctx, client, nodeID); err != nil {
			return
		}
	}

	s.handleMessages(ctx, client)
}

// setupWebSocketClient upgrades the connection and registers a client.
func (s *Server) setupWebSocketClient(w http.ResponseWriter, r *http.Request) (*ws.Client, func(), error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		requestLogger(r, s.logger).Warn("websocket upgrade failed", zap.Error(err))

		return nil, nil, err
	}

	client := ws.NewClient(uuid.New().String(), conn)
	s.hub.Register(client)
	s.metrics.WSClients.Inc()

	cleanup := func() {
		s.hub.Unregister(client)
		s.metrics.WSClients.Dec()
		_ = client.Close()
	}

	return client, cleanup, nil
}

// subscribe follows nodeID and sends the node's current comments.
func (s *Server) subscribe(ctx context.Context, client *ws.Client, nodeID string) error {
	s.hub.Subscribe(client, nodeID)

	comments, err := s.service.List(ctx, nodeID)
	if err != nil {
		_ = client.SendError(ws.ErrorCodeInternalError, "failed to load comments")

		return err
	}

	return client.Send(ws.Message{
		Type: ws.MessageTypeSubscribed,
		Payload: ws.SubscribedPayload{
			NodeID:   nodeID,
			Comments: comments,
		},
	})
}

// handleMessages processes incoming messages from a client.
func (s *Server) handleMessages(ctx context.Context, client *ws.Client) {
	for {
		msg, err := client.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case ws.MessageTypeSubscribe:
			payload, ok := msg.Payload.(ws.NodePayload)
			if !ok || payload.NodeID == "" {
				_ = client.SendError(ws.ErrorCodeInvalidMessage, "nodeId is required")

				continue
			}

			if err := s.subscribe(ctx, client, payload.NodeID); err != nil {
				return
			}
		case ws.MessageTypeUnsubscribe:
			nodeID := client.NodeID()
			if payload, ok := msg.Payload.(ws.NodePayload); ok && payload.NodeID != "" {
				nodeID = payload.NodeID
			}

			s.hub.Unsubscribe(client, nodeID)
		case ws.MessageTypePing:
			if err := client.Send(ws.Message{Type: ws.MessageTypePong}); err != nil {
				return
			}
		default:
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "unknown message type")
		}
	}
}
