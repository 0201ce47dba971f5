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

type FriendHandler struct {
	friends  repositories.FriendRepository
	profiles *services.UserService
	audit    *telemetry.AuditEmitter
}

func NewFriendHandler(friends repositories.FriendRepository, profiles *services.UserService, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friends: friends, profiles: profiles, audit: audit}
}

type friendSummary struct {
	FriendID        int64  `json:"friendId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ProfileImageURL string `json:"profileImageUrl"`
	Email           string `json:"email"`
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	hasRecord, err := h.friends.HasFriendRecord(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !hasRecord {
		// Distinguish an unknown user from one whose friends marker is gone.
		if _, err := h.profiles.GetProfile(ctx, *userID); err != nil {
			respondError(c, apperrors.NotFound("user not found"))
			return
		}
		respondError(c, apperrors.NotFound("user exists but record of friends not found"))
		return
	}

	friendIDs, err := h.friends.ListFriends(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": h.summaries(ctx, friendIDs)})
}

func (h *FriendHandler) SearchFriends(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	hasRecord, err := h.friends.HasFriendRecord(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !hasRecord {
		respondError(c, apperrors.NotFound("user not found"))
		return
	}

	friendIDs, err := h.friends.ListFriends(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	profiles, err := h.profiles.SearchFriends(ctx, c.Query("q"), friendIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]friendSummary, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, friendSummary{
			FriendID:        p.ID,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			ProfileImageURL: p.ProfileImageURL,
			Email:           p.Email,
		})
	}

	c.JSON(http.StatusOK, gin.H{"userId": *userID, "friends": result})
}

func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		metrics.IncFriendRemoval(metrics.StatusFailed)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	friendID, err := strconv.ParseInt(c.Param("friendId"), 10, 64)
	if err != nil {
		metrics.IncFriendRemoval(metrics.StatusFailed)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid friend id"})
		return
	}

	requestID := requestIDFromHeader(c)
	ctx := c.Request.Context()

	hasRecord, err := h.friends.HasFriendRecord(ctx, *userID)
	if err != nil {
		metrics.IncFriendRemoval(metrics.StatusFailed)
		respondError(c, err)
		return
	}
	if !hasRecord {
		metrics.IncFriendRemoval(metrics.StatusFailed)
		respondError(c, apperrors.NotFound("user not found"))
		return
	}

	if err := h.friends.RemoveFriendship(ctx, *userID, friendID); err != nil {
		h.emitAudit(ctx, "ERROR", "failed to remove friend", requestID, userID)
		metrics.IncFriendRemoval(metrics.StatusFailed)
		respondError(c, err)
		return
	}

	h.emitAudit(ctx, "INFO", "Friend '"+strconv.FormatInt(friendID, 10)+"' removed", requestID, userID)
	metrics.IncFriendRemoval(metrics.StatusSuccess)
	c.JSON(http.StatusOK, gin.H{"message": "friend removed"})
}

func (h *FriendHandler) summaries(ctx context.Context, friendIDs []int64) []friendSummary {
	profiles := h.profiles.Profiles(ctx, friendIDs)
	result := make([]friendSummary, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, friendSummary{
			FriendID:        p.ID,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			ProfileImageURL: p.ProfileImageURL,
			Email:           p.Email,
		})
	}
	return result
}

func (h *FriendHandler) emitAudit(ctx context.Context, level, text, requestID string, userID *int64) {
	if h.audit == nil {
		return
	}
	h.audit.EmitAudit(ctx, level, text, requestID, userID)
}
