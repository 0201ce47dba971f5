package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/apperrors"
	"chat-service/internal/mocks"
	"chat-service/internal/models"
	"chat-service/internal/services"
)

func setupRequestsRouter(handler *FriendRequestHandler, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.GET("/friendRequests", handler.List)
	r.POST("/friendRequests", handler.Send)
	r.POST("/friendRequests/:friendRequestId", handler.Resolve)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendRequestOK(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob", LastName: "Jones"}, nil).Once()
	friends.On("AreFriends", mock.Anything, int64(1), int64(2)).Return(false, nil).Once()
	friends.On("HasPendingRequest", mock.Anything, int64(1), int64(2)).Return(false, nil).Once()
	friends.On("CreateRequest", mock.Anything, int64(1), int64(2)).
		Return(&models.FriendRequest{ID: 10, SenderID: 1, ReceiverID: 2}, nil).Once()

	rec := postJSON(t, router, "/friendRequests", `{"receiverId":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "friend request sent to Bob Jones", resp["message"])
	friends.AssertExpectations(t)
}

func TestSendRequestToSelfRejected(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	rec := postJSON(t, router, "/friendRequests", `{"receiverId":1}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "cannot send friend request to yourself", resp["message"])
	friends.AssertNotCalled(t, "CreateRequest")
}

func TestSendRequestUnknownReceiver(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	users.On("GetByID", mock.Anything, int64(99)).
		Return(nil, apperrors.NotFound("user not found")).Once()

	rec := postJSON(t, router, "/friendRequests", `{"receiverId":99}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "receiver not found", resp["message"])
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob"}, nil).Once()
	friends.On("AreFriends", mock.Anything, int64(1), int64(2)).Return(true, nil).Once()

	rec := postJSON(t, router, "/friendRequests", `{"receiverId":2}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "friend already exists", resp["message"])
	friends.AssertNotCalled(t, "CreateRequest")
}

func TestSendRequestDuplicatePending(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob"}, nil).Once()
	friends.On("AreFriends", mock.Anything, int64(1), int64(2)).Return(false, nil).Once()
	friends.On("HasPendingRequest", mock.Anything, int64(1), int64(2)).Return(true, nil).Once()

	rec := postJSON(t, router, "/friendRequests", `{"receiverId":2}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "friend request already exists", resp["message"])
	friends.AssertNotCalled(t, "CreateRequest")
}

func TestResolveInvalidAction(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	rec := postJSON(t, router, "/friendRequests/10", `{"action":"maybe"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "invalid action", resp["message"])
	friends.AssertNotCalled(t, "AcceptRequest")
	friends.AssertNotCalled(t, "DeclineRequest")
}

func TestResolveAcceptOK(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 2)

	friends.On("AcceptRequest", mock.Anything, int64(10), int64(2)).Return(nil).Once()

	rec := postJSON(t, router, "/friendRequests/10", `{"action":"accept"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "friend request accepted", resp["message"])
	friends.AssertExpectations(t)
}

func TestResolveAcceptBySenderForbidden(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	friends.On("AcceptRequest", mock.Anything, int64(10), int64(1)).
		Return(apperrors.Forbidden("you cannot accept the friend request you yourself has sent")).Once()

	rec := postJSON(t, router, "/friendRequests/10", `{"action":"accept"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResolveAcceptMissingRequest(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 2)

	friends.On("AcceptRequest", mock.Anything, int64(10), int64(2)).
		Return(apperrors.NotFound("friend request not found")).Once()

	rec := postJSON(t, router, "/friendRequests/10", `{"action":"accept"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveDeclineOK(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	friends.On("DeclineRequest", mock.Anything, int64(10)).Return(nil).Once()

	rec := postJSON(t, router, "/friendRequests/10", `{"action":"decline"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "friend request declined", resp["message"])
	friends.AssertExpectations(t)
}

func TestListRequestsResolvesOtherParty(t *testing.T) {
	users := new(mocks.UserRepository)
	friends := new(mocks.FriendRepository)
	handler := NewFriendRequestHandler(friends, services.NewUserService(users), nil)
	router := setupRequestsRouter(handler, 1)

	friends.On("ListRequestsForUser", mock.Anything, int64(1)).Return([]models.FriendRequest{
		{ID: 10, SenderID: 2, ReceiverID: 1},
		{ID: 11, SenderID: 1, ReceiverID: 3},
	}, nil).Once()
	users.On("GetByID", mock.Anything, int64(2)).
		Return(&models.User{ID: 2, FirstName: "Bob"}, nil).Once()
	users.On("GetByID", mock.Anything, int64(3)).
		Return(&models.User{ID: 3, FirstName: "Carol"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friendRequests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID   int64                   `json:"userId"`
		Requests []responseFriendRequest `json:"responseFriendRequests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Requests, 2)
	require.Equal(t, "Bob", resp.Requests[0].FriendFirstName)
	require.Equal(t, "Carol", resp.Requests[1].FriendFirstName)
}
