package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-service/internal/repositories"
	"chat-service/internal/services"
)

type UserHandler struct {
	users   repositories.UserRepository
	friends repositories.FriendRepository
}

func NewUserHandler(users repositories.UserRepository, friends repositories.FriendRepository) *UserHandler {
	return &UserHandler{users: users, friends: friends}
}

// Search finds users to befriend: matches on name or email, minus existing
// friends, minus anyone with a pending request in either direction, minus
// the caller.
func (h *UserHandler) Search(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide a search query"})
		return
	}

	ctx := c.Request.Context()
	users, err := h.users.SearchByNameOrEmail(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}

	friendIDs, err := h.friends.ListFriends(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	requests, err := h.friends.ListRequestsForUser(ctx, *userID)
	if err != nil {
		respondError(c, err)
		return
	}

	excluded := map[int64]struct{}{*userID: {}}
	for _, id := range friendIDs {
		excluded[id] = struct{}{}
	}
	for _, req := range requests {
		excluded[req.SenderID] = struct{}{}
		excluded[req.ReceiverID] = struct{}{}
	}

	results := make([]services.Profile, 0, len(users))
	for _, user := range users {
		if _, ok := excluded[user.ID]; ok {
			continue
		}
		results = append(results, services.Profile{
			ID:              user.ID,
			FirstName:       user.FirstName,
			LastName:        user.LastName,
			Email:           user.Email,
			ProfileImageURL: user.ProfileImageURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}
