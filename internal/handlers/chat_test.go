package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/apperrors"
	"chat-service/internal/mocks"
	"chat-service/internal/models"
	"chat-service/internal/services"
)

func setupChatRouter(handler *ChatHandler, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.GET("/chat", handler.List)
	r.POST("/chat/create", handler.Create)
	r.GET("/chat/:chatId", handler.Messages)
	r.DELETE("/chat/:chatId", handler.Clear)
	return r
}

func TestListChatsOK(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("ListConversationsForUser", mock.Anything, int64(1)).Return([]models.Conversation{
		{ID: 100, Name: "", Type: models.ConversationTypePrivate},
	}, nil).Once()
	chats.On("ParticipantIDs", mock.Anything, int64(100)).Return([]int64{1, 2}, nil).Once()
	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob", LastName: "Jones"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []chatSummary `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	require.Equal(t, int64(100), resp.Chats[0].ConversationID)
	require.Equal(t, int64(2), resp.Chats[0].FriendID)
	require.Equal(t, "Bob", resp.Chats[0].FriendFirstName)
}

func TestListChatsGroupNotReady(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("ListConversationsForUser", mock.Anything, int64(1)).Return([]models.Conversation{
		{ID: 100, Name: "team", Type: models.ConversationTypeGroup},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "group chat feature is not ready yet", resp["message"])
}

func TestCreateChatOK(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("FindOrCreateConversation", mock.Anything, []int64{1, 2}, "", "").
		Return(&models.Conversation{ID: 100, Type: models.ConversationTypePrivate}, true, nil).Once()
	users.On("GetByID", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, FirstName: "Alice"}, nil).Once()
	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob"}, nil).Once()

	body := `{"participants":[1,2]}`
	req := httptest.NewRequest(http.MethodPost, "/chat/create", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID       int64             `json:"userId"`
		ChatID       int64             `json:"chatId"`
		Type         string            `json:"type"`
		Participants []chatParticipant `json:"participants"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, int64(100), resp.ChatID)
	require.Len(t, resp.Participants, 2)
	chats.AssertExpectations(t)
}

func TestCreateChatIdempotent(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	// Second create for the same pair returns the existing conversation.
	chats.On("FindOrCreateConversation", mock.Anything, []int64{1, 2}, "", "").
		Return(&models.Conversation{ID: 100, Type: models.ConversationTypePrivate}, false, nil).Twice()
	users.On("GetByID", mock.Anything, mock.Anything).
		Return(&models.User{ID: 1, FirstName: "Alice"}, nil)

	for i := 0; i < 2; i++ {
		body := `{"participants":[1,2]}`
		req := httptest.NewRequest(http.MethodPost, "/chat/create", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			ChatID int64 `json:"chatId"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, int64(100), resp.ChatID)
	}
	chats.AssertExpectations(t)
}

func TestCreateChatCallerNotIncluded(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	body := `{"participants":[2,3]}`
	req := httptest.NewRequest(http.MethodPost, "/chat/create", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "invalid participants", resp["message"])
	chats.AssertNotCalled(t, "FindOrCreateConversation")
}

func TestMessagesUnknownChat(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("GetConversationForUser", mock.Anything, int64(100), int64(1)).
		Return(nil, apperrors.NotFound("chat not found")).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "chat not found", resp["message"])
	chats.AssertNotCalled(t, "ListMessages")
}

func TestMessagesEmptyHistoryIsEmptyArray(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("GetConversationForUser", mock.Anything, int64(100), int64(1)).
		Return(&models.Conversation{ID: 100, Type: models.ConversationTypePrivate}, nil).Once()
	chats.On("ListMessages", mock.Anything, int64(100), int64(1)).Return(nil, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestMessagesOK(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	chats.On("GetConversationForUser", mock.Anything, int64(100), int64(1)).
		Return(&models.Conversation{ID: 100, Type: models.ConversationTypePrivate}, nil).Once()
	chats.On("ListMessages", mock.Anything, int64(100), int64(1)).Return([]models.Message{
		{ID: 1, ConversationID: 100, SenderID: 2, Content: "hi", CreatedAt: now, DeletedBy: []int64{}},
		{ID: 2, ConversationID: 100, SenderID: 1, Content: "hello", CreatedAt: now.Add(time.Second), DeletedBy: []int64{}},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, "hi", resp.Messages[0].Content)
	require.True(t, resp.Messages[0].CreatedAt.Before(resp.Messages[1].CreatedAt))
}

func TestClearChatOK(t *testing.T) {
	users := new(mocks.UserRepository)
	chats := new(mocks.ChatRepository)
	handler := NewChatHandler(chats, services.NewUserService(users))
	router := setupChatRouter(handler, 1)

	chats.On("GetConversationForUser", mock.Anything, int64(100), int64(1)).
		Return(&models.Conversation{ID: 100, Type: models.ConversationTypePrivate}, nil).Once()
	chats.On("ClearConversationForUser", mock.Anything, int64(100), int64(1)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chat/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "chat cleared", resp["message"])
	chats.AssertExpectations(t)
}
