package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"chat-service/internal/auth"
	"chat-service/internal/metrics"
	"chat-service/internal/presence"
	"chat-service/internal/queue"
	"chat-service/internal/repositories"
)

const (
	pongWait       = 60 * time.Second
	maxFrameBytes  = 64 * 1024
	persistTimeout = 5 * time.Second
)

const (
	eventJoinRoom          = "join-room"
	eventMessageToServer   = "messageToServer"
	eventMessageFromServer = "messageFromServer"
	eventConnected         = "connected"
	eventRoomJoined        = "room-joined"
	eventError             = "error"
)

type inboundFrame struct {
	Event   string `json:"event"`
	ChatID  int64  `json:"chatId"`
	Content string `json:"content"`
}

type errorFrame struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Gateway upgrades HTTP requests to websocket sessions and runs the
// per-connection read loop. Messages are persisted before fan-out, and
// delivery goes only to connections joined to the message's room.
type Gateway struct {
	auth     *auth.Authenticator
	chats    repositories.ChatRepository
	hub      *Hub
	presence presence.Tracker
	queue    queue.Client
	upgrader websocket.Upgrader
}

func NewGateway(authn *auth.Authenticator, chats repositories.ChatRepository, hub *Hub, tracker presence.Tracker, q queue.Client) *Gateway {
	return &Gateway{
		auth:     authn,
		chats:    chats,
		hub:      hub,
		presence: tracker,
		queue:    q,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handle is the websocket endpoint. The upgrade succeeds even without valid
// credentials; an unauthenticated session stays open but answers every frame
// with an error so misconfigured clients can see why nothing is delivered.
func (g *Gateway) Handle(c *gin.Context) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	userID, err := g.authenticate(c)
	if err != nil {
		g.runUnauthenticated(ws)
		return
	}

	conn := NewConnection(userID, ws)
	g.hub.Attach(conn)
	metrics.IncWSConnections()
	if err := g.presence.SetOnline(c.Request.Context(), userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("failed to mark user online")
	}
	g.sendJSON(conn, gin.H{"event": eventConnected, "userId": userID})

	g.readLoop(conn)

	g.hub.Detach(conn)
	conn.Close(websocket.CloseNormalClosure, "session ended")
	metrics.DecWSConnections()
	if err := g.presence.SetOffline(context.Background(), userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("failed to mark user offline")
	}
}

func (g *Gateway) authenticate(c *gin.Context) (int64, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	return g.auth.Verify(token)
}

// runUnauthenticated services a session whose credentials did not verify.
// Every frame gets the same error back until the client hangs up.
func (g *Gateway) runUnauthenticated(ws *websocket.Conn) {
	defer ws.Close()
	ws.SetReadLimit(maxFrameBytes)
	for {
		if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
		payload, _ := json.Marshal(errorFrame{Event: eventError, Code: "unauthenticated", Message: "valid token required"})
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (g *Gateway) readLoop(conn *Connection) {
	conn.ws.SetReadLimit(maxFrameBytes)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).WithField("user_id", conn.UserID).Debug("websocket read ended")
			}
			return
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.sendError(conn, "invalid_payload", "malformed frame")
			continue
		}

		switch frame.Event {
		case eventJoinRoom:
			g.handleJoin(conn, frame)
		case eventMessageToServer:
			g.handleMessage(conn, frame)
		default:
			g.sendError(conn, "invalid_payload", "unknown event")
		}
	}
}

// handleJoin admits the connection to a room only after confirming the user
// is a participant of the conversation.
func (g *Gateway) handleJoin(conn *Connection, frame inboundFrame) {
	if frame.ChatID <= 0 {
		g.sendError(conn, "invalid_payload", "chatId is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	ok, err := g.chats.IsParticipant(ctx, frame.ChatID, conn.UserID)
	if err != nil {
		log.WithError(err).WithField("chat_id", frame.ChatID).Error("participant lookup failed")
		g.sendError(conn, "internal_error", "could not join room")
		return
	}
	if !ok {
		g.sendError(conn, "forbidden", "you are not a participant of this chat")
		return
	}

	g.hub.Join(frame.ChatID, conn)
	g.sendJSON(conn, gin.H{"event": eventRoomJoined, "chatId": frame.ChatID})
}

// handleMessage persists the message and only then fans it out to the room.
// Persistence runs on a background context so a client disconnect mid-write
// cannot abort a message other participants should still receive.
func (g *Gateway) handleMessage(conn *Connection, frame inboundFrame) {
	if frame.ChatID <= 0 || frame.Content == "" {
		g.sendError(conn, "invalid_payload", "chatId and content are required")
		return
	}
	if !g.hub.InRoom(frame.ChatID, conn) {
		g.sendError(conn, "forbidden", "join the room before sending messages")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg, err := g.chats.AppendMessage(ctx, frame.ChatID, conn.UserID, frame.Content)
	if err != nil {
		metrics.IncMessagePersisted(metrics.StatusFailed)
		log.WithError(err).WithFields(log.Fields{
			"chat_id": frame.ChatID,
			"user_id": conn.UserID,
		}).Error("failed to persist message")
		g.sendError(conn, "internal_error", "message could not be saved")
		return
	}
	metrics.IncMessagePersisted(metrics.StatusSuccess)

	payload, err := json.Marshal(gin.H{"event": eventMessageFromServer, "message": msg})
	if err != nil {
		g.sendError(conn, "internal_error", "message could not be encoded")
		return
	}
	delivered := g.hub.Broadcast(frame.ChatID, payload)
	metrics.AddMessagesDelivered(delivered)

	go g.notifyOffline(frame.ChatID, msg.ID, conn.UserID)
}

// notifyOffline queues a push notification for each participant with no live
// connection and no presence record.
func (g *Gateway) notifyOffline(conversationID, messageID, senderID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	participants, err := g.chats.ParticipantIDs(ctx, conversationID)
	if err != nil {
		log.WithError(err).WithField("chat_id", conversationID).Warn("could not list participants for notification")
		return
	}
	for _, id := range participants {
		if id == senderID || g.hub.IsUserConnected(id) {
			continue
		}
		online, err := g.presence.IsOnline(ctx, id)
		if err != nil {
			log.WithError(err).WithField("user_id", id).Warn("presence lookup failed")
		}
		if online {
			continue
		}
		notification := queue.MessageNotification{
			UserID:         id,
			ConversationID: conversationID,
			MessageID:      messageID,
			SenderID:       senderID,
		}
		if err := g.queue.EnqueueMessageNotification(ctx, notification); err != nil {
			log.WithError(err).WithField("user_id", id).Warn("failed to enqueue message notification")
		}
	}
}

func (g *Gateway) sendJSON(conn *Connection, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

func (g *Gateway) sendError(conn *Connection, code, message string) {
	payload, _ := json.Marshal(errorFrame{Event: eventError, Code: code, Message: message})
	_ = conn.Send(payload)
}
