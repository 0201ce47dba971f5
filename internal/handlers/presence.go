package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-service/internal/apperrors"
	"chat-service/internal/presence"
)

// ConnectionChecker reports whether a user currently holds a live websocket
// connection on this instance.
type ConnectionChecker interface {
	IsUserConnected(userID int64) bool
}

type PresenceHandler struct {
	tracker presence.Tracker
	conns   ConnectionChecker
}

func NewPresenceHandler(tracker presence.Tracker, conns ConnectionChecker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, conns: conns}
}

// Status reports whether a user is online. A local websocket connection wins
// over the shared tracker so a fresh connection is visible immediately.
func (h *PresenceHandler) Status(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(c, apperrors.InvalidArg("invalid user id"))
		return
	}

	online := h.conns != nil && h.conns.IsUserConnected(userID)
	if !online {
		online, err = h.tracker.IsOnline(c.Request.Context(), userID)
		if err != nil {
			respondError(c, apperrors.Wrap(apperrors.CodeInternal, "failed to check presence", err))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
}
