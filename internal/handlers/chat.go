package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-service/internal/apperrors"
	"chat-service/internal/models"
	"chat-service/internal/repositories"
	"chat-service/internal/services"
)

type ChatHandler struct {
	chats    repositories.ChatRepository
	profiles *services.UserService
}

func NewChatHandler(chats repositories.ChatRepository, profiles *services.UserService) *ChatHandler {
	return &ChatHandler{chats: chats, profiles: profiles}
}

type chatSummary struct {
	ConversationID        int64  `json:"conversationId"`
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	FriendID              int64  `json:"friendId"`
	FriendFirstName       string `json:"friendFirstName"`
	FriendLastName        string `json:"friendLastName"`
	FriendProfileImageURL string `json:"friendProfileImageUrl"`
}

// List returns the caller's conversations with the other participant's
// profile resolved.
func (h *ChatHandler) List(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	convs, err := h.chats.ListConversationsForUser(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]chatSummary, 0, len(convs))
	for _, conv := range convs {
		if conv.Type == models.ConversationTypeGroup {
			respondError(c, apperrors.InvalidArg("group chat feature is not ready yet"))
			return
		}

		participantIDs, err := h.chats.ParticipantIDs(ctx, conv.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		var friendID int64
		for _, id := range participantIDs {
			if id != *userID {
				friendID = id
				break
			}
		}

		friend, err := h.profiles.GetProfile(ctx, friendID)
		if err != nil {
			respondError(c, apperrors.NotFound("friend not found"))
			return
		}

		resp = append(resp, chatSummary{
			ConversationID:        conv.ID,
			Name:                  conv.Name,
			Type:                  conv.Type,
			FriendID:              friend.ID,
			FriendFirstName:       friend.FirstName,
			FriendLastName:        friend.LastName,
			FriendProfileImageURL: friend.ProfileImageURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"chats": resp})
}

type createChatBody struct {
	Participants []int64 `json:"participants" binding:"required"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
}

type chatParticipant struct {
	ParticipantID   int64  `json:"participantId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Create finds or creates the conversation for the given participant set.
func (h *ChatHandler) Create(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var body createChatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	callerIncluded := false
	for _, id := range body.Participants {
		if id == *userID {
			callerIncluded = true
			break
		}
	}
	if len(body.Participants) < 2 || !callerIncluded {
		respondError(c, apperrors.InvalidArg("invalid participants"))
		return
	}

	ctx := c.Request.Context()
	conv, _, err := h.chats.FindOrCreateConversation(ctx, body.Participants, body.Name, body.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	profiles := h.profiles.Profiles(ctx, body.Participants)
	participants := make([]chatParticipant, 0, len(profiles))
	for _, p := range profiles {
		participants = append(participants, chatParticipant{
			ParticipantID:   p.ID,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			Email:           p.Email,
			ProfileImageURL: p.ProfileImageURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":       *userID,
		"chatId":       conv.ID,
		"name":         conv.Name,
		"type":         conv.Type,
		"participants": participants,
	})
}

// Messages returns the full visible history of one conversation for the
// caller: creation order, minus soft-deleted messages and anything before
// the caller's history cutoff.
func (h *ChatHandler) Messages(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid chat id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.chats.GetConversationForUser(ctx, chatID, *userID); err != nil {
		respondError(c, err)
		return
	}

	messages, err := h.chats.ListMessages(ctx, chatID, *userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Clear soft-deletes the conversation history for the caller only.
func (h *ChatHandler) Clear(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid chat id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.chats.GetConversationForUser(ctx, chatID, *userID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.chats.ClearConversationForUser(ctx, chatID, *userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chat cleared"})
}
