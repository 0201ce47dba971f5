package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-service/internal/apperrors"
	"chat-service/internal/metrics"
	"chat-service/internal/repositories"
	"chat-service/internal/services"
	"chat-service/internal/telemetry"
)

type FriendRequestHandler struct {
	friends  repositories.FriendRepository
	profiles *services.UserService
	audit    *telemetry.AuditEmitter
}

func NewFriendRequestHandler(friends repositories.FriendRepository, profiles *services.UserService, audit *telemetry.AuditEmitter) *FriendRequestHandler {
	return &FriendRequestHandler{friends: friends, profiles: profiles, audit: audit}
}

type responseFriendRequest struct {
	FriendRequestID       int64  `json:"friendRequestId"`
	SenderID              int64  `json:"sender_id"`
	ReceiverID            int64  `json:"receiver_id"`
	FriendFirstName       string `json:"friendFirstName"`
	FriendLastName        string `json:"friendLastName"`
	FriendProfileImageURL string `json:"friendProfileImageUrl"`
	FriendEmail           string `json:"friendEmail"`
}

// List returns both inbound and outbound requests, each resolved against the
// other party's profile.
func (h *FriendRequestHandler) List(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	requests, err := h.friends.ListRequestsForUser(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]responseFriendRequest, 0, len(requests))
	for _, req := range requests {
		otherID := req.SenderID
		if otherID == *userID {
			otherID = req.ReceiverID
		}

		entry := responseFriendRequest{
			FriendRequestID: req.ID,
			SenderID:        req.SenderID,
			ReceiverID:      req.ReceiverID,
		}
		if other, err := h.profiles.GetProfile(ctx, otherID); err == nil {
			entry.FriendFirstName = other.FirstName
			entry.FriendLastName = other.LastName
			entry.FriendProfileImageURL = other.ProfileImageURL
			entry.FriendEmail = other.Email
		}
		resp = append(resp, entry)
	}

	c.JSON(http.StatusOK, gin.H{"userId": *userID, "responseFriendRequests": resp})
}

type sendRequestBody struct {
	ReceiverID int64 `json:"receiverId" binding:"required"`
}

func (h *FriendRequestHandler) Send(c *gin.Context) {
	requestID := requestIDFromHeader(c)
	userID := userIDFromContext(c)
	if userID == nil {
		metrics.IncFriendRequest(metrics.StatusFailed)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var body sendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.emitAudit(c.Request.Context(), "ERROR", "invalid request payload", requestID, userID)
		metrics.IncFriendRequest(metrics.StatusFailed)
		c.JSON(http.StatusBadRequest, gin.H{"message": "receiver id is required"})
		return
	}

	senderID := *userID
	receiverID := body.ReceiverID
	ctx := c.Request.Context()

	if receiverID == senderID {
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, apperrors.InvalidArg("cannot send friend request to yourself"))
		return
	}

	receiver, err := h.profiles.GetProfile(ctx, receiverID)
	if err != nil {
		h.emitAudit(ctx, "ERROR", "receiver not found", requestID, userID)
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, apperrors.NotFound("receiver not found"))
		return
	}

	friends, err := h.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, err)
		return
	}
	if friends {
		h.emitAudit(ctx, "ERROR", "users are already friends", requestID, userID)
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, apperrors.Conflict("friend already exists"))
		return
	}

	pending, err := h.friends.HasPendingRequest(ctx, senderID, receiverID)
	if err != nil {
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, err)
		return
	}
	if pending {
		h.emitAudit(ctx, "ERROR", "pending friend request already exists", requestID, userID)
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, apperrors.Conflict("friend request already exists"))
		return
	}

	if _, err := h.friends.CreateRequest(ctx, senderID, receiverID); err != nil {
		h.emitAudit(ctx, "ERROR", "failed to create friend request", requestID, userID)
		metrics.IncFriendRequest(metrics.StatusFailed)
		respondError(c, err)
		return
	}

	h.emitAudit(ctx, "INFO", "Friend request sent to '"+strconv.FormatInt(receiverID, 10)+"'", requestID, userID)
	metrics.IncFriendRequest(metrics.StatusSuccess)
	c.JSON(http.StatusOK, gin.H{
		"message": "friend request sent to " + receiver.FirstName + " " + receiver.LastName,
	})
}

type resolveRequestBody struct {
	Action string `json:"action" binding:"required"`
}

// Resolve accepts or declines a pending request. Accept is restricted to the
// receiver; decline is allowed from either side, which lets a sender cancel.
func (h *FriendRequestHandler) Resolve(c *gin.Context) {
	requestID := requestIDFromHeader(c)
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	friendRequestID, err := strconv.ParseInt(c.Param("friendRequestId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid friend request id"})
		return
	}

	var body resolveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil || (body.Action != "accept" && body.Action != "decline") {
		metrics.IncFriendAccept(metrics.StatusFailed)
		respondError(c, apperrors.InvalidArg("invalid action"))
		return
	}

	ctx := c.Request.Context()

	if body.Action == "decline" {
		if err := h.friends.DeclineRequest(ctx, friendRequestID); err != nil {
			h.emitAudit(ctx, "ERROR", "failed to decline friend request", requestID, userID)
			metrics.IncFriendDecline(metrics.StatusFailed)
			respondError(c, err)
			return
		}
		h.emitAudit(ctx, "INFO", "Friend request declined", requestID, userID)
		metrics.IncFriendDecline(metrics.StatusSuccess)
		c.JSON(http.StatusOK, gin.H{"message": "friend request declined"})
		return
	}

	if err := h.friends.AcceptRequest(ctx, friendRequestID, *userID); err != nil {
		h.emitAudit(ctx, "ERROR", "failed to accept friend request", requestID, userID)
		metrics.IncFriendAccept(metrics.StatusFailed)
		respondError(c, err)
		return
	}

	h.emitAudit(ctx, "INFO", "Friend request accepted", requestID, userID)
	metrics.IncFriendAccept(metrics.StatusSuccess)
	c.JSON(http.StatusOK, gin.H{"message": "friend request accepted"})
}

func (h *FriendRequestHandler) emitAudit(ctx context.Context, level, text, requestID string, userID *int64) {
	if h.audit == nil {
		return
	}
	h.audit.EmitAudit(ctx, level, text, requestID, userID)
}
