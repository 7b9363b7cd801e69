package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/serroba/opsportal/internal/events"
	"github.com/serroba/opsportal/internal/ws"
)

// handleDriveEvents handles GET /api/drive-events. The client starts out
// watching the drive root and switches folders with watch messages.
func (s *Server) handleDriveEvents(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	client, cleanup, err := s.setupWebSocketClient(w, r, userID)
	if err != nil {
		return
	}

	defer cleanup()

	s.subscribe(r.Context(), client, ws.WatchPayload{})
	s.handleMessages(r.Context(), client)
}

// setupWebSocketClient upgrades the connection and registers a client.
func (s *Server) setupWebSocketClient(w http.ResponseWriter, r *http.Request, userID int64) (*ws.Client, func(), error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("WebSocket upgrade failed")

		return nil, nil, err
	}

	client := ws.NewClient(uuid.New().String(), userID, conn)
	s.hub.Register(client)

	cleanup := func() {
		s.hub.Unregister(client)
		_ = client.Close()
	}

	return client, cleanup, nil
}

// handleMessages processes incoming messages until the client goes away.
func (s *Server) handleMessages(ctx context.Context, client *ws.Client) {
	for {
		msg, err := client.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case ws.MessageTypeWatch:
			payload, ok := msg.Payload.(ws.WatchPayload)
			if !ok {
				_ = client.SendError(ws.ErrorCodeInvalidMessage, "invalid watch payload")

				continue
			}

			s.subscribe(ctx, client, payload)
		case ws.MessageTypeWatching, ws.MessageTypeDriveEvent, ws.MessageTypeError:
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "unexpected message type")
		default:
			_ = client.SendError(ws.ErrorCodeInvalidMessage, "unknown message type")
		}
	}
}

// subscribe moves client to the topic of watch. Folder topics are limited
// to the folder's owner and the all topic to callers who may read the
// activity log. A refused watch keeps the current subscription.
func (s *Server) subscribe(ctx context.Context, client *ws.Client, watch ws.WatchPayload) {
	if err := s.canWatch(ctx, client.UserID, watch); err != nil {
		log.Debug().Err(err).Int64("user_id", client.UserID).Str("topic", watch.Topic()).Msg("Watch refused")

		_ = client.SendError(ws.ErrorCodeForbidden, err.Error())

		return
	}

	topic := watch.Topic()
	s.hub.Subscribe(client, topic)

	_ = client.Send(ws.Message{
		Type:    ws.MessageTypeWatching,
		Payload: ws.WatchingPayload{Topic: topic},
	})
}

func (s *Server) canWatch(ctx context.Context, userID int64, watch ws.WatchPayload) error {
	if !watch.All {
		return s.drive.CanWatch(ctx, watch.FolderID, userID)
	}

	ok, err := s.checker.Permits(ctx, userID, routeLogs)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to check watch permission")

		return errors.New("failed to check permission")
	}

	if !ok {
		return errors.New("not allowed to watch every folder")
	}

	return nil
}

// handleRebroadcast handles POST /api/drive-events. Events posted by other
// portal instances are pushed to the clients connected here.
func (s *Server) handleRebroadcast(w http.ResponseWriter, r *http.Request) {
	var e events.Event
	if !decode(w, r, &e) {
		return
	}

	if !e.Valid() {
		writeMessage(w, http.StatusBadRequest, "invalid drive event")

		return
	}

	s.relay.Notify(r.Context(), e)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
