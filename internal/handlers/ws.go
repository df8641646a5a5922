// internal/handlers/ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/qspy/internal/game"
	"github.com/jason-s-yu/qspy/internal/protocol"
	"github.com/jason-s-yu/qspy/internal/version"
)

// wsConn adapts a live websocket connection to the transport interface
// the session broadcasts through.
type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w wsConn) Close(reason string) error {
	return w.c.Close(websocket.StatusNormalClosure, reason)
}

// RoomWSHandler upgrades the connection for a room identified by the
// roomID query parameter, joins the player under their requested
// nickname, and runs the read loop until the connection dies.
func RoomWSHandler(logger *logrus.Logger, dir *game.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		wsq := protocol.NewWSQuery(query.Get("roomID"), query.Get("nickname"))
		if err := wsq.Validate(); err != nil {
			http.Error(w, err.Message, http.StatusBadRequest)
			return
		}
		clientVersion := query.Get("version")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", wsq.RoomID, err)
			return
		}

		if clientVersion != version.Current() {
			c.Close(StatusVersionMismatch, "version does not match server version")
			return
		}

		s := dir.FindRoomByID(wsq.RoomID)
		if s == nil {
			c.Close(StatusRoomNotFound, "room not found")
			return
		}

		playerID, err := s.Join(wsConn{c}, wsq.Nickname)
		if err != nil {
			switch {
			case errors.Is(err, game.ErrRoomStarted):
				c.Close(StatusRoomStarted, "room has already started")
			case errors.Is(err, game.ErrRoomFull):
				c.Close(StatusRoomFull, "room is full")
			case errors.Is(err, game.ErrRoomClosed):
				c.Close(StatusRoomNotFound, "room is closed")
			default:
				logger.Errorf("join failed for room %s: %v", wsq.RoomID, err)
				c.Close(websocket.StatusInternalError, "join failed")
			}
			return
		}
		logger.Infof("player %s joined room %s from %s", playerID, wsq.RoomID, r.RemoteAddr)

		readIntents(r.Context(), c, s, playerID, logger)

		s.Leave(playerID)
		logger.Infof("player %s left room %s", playerID, wsq.RoomID)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readIntents pumps client messages into the session until the
// connection closes. Messages that fail to decode into a known intent
// are dropped without a response.
func readIntents(ctx context.Context, c *websocket.Conn, s *game.Session, playerID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				logger.Infof("WebSocket closed normally for player %s", playerID)
			case strings.Contains(err.Error(), "context canceled"):
				logger.Infof("WebSocket context canceled for player %s", playerID)
			default:
				logger.Debugf("read error for player %s: %v", playerID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		s.Touch()

		intent, err := protocol.DecodeIntent(data)
		if err != nil {
			logger.Debugf("dropping undecodable packet from player %s: %v", playerID, err)
			continue
		}
		s.HandleIntent(playerID, intent)
	}
}
