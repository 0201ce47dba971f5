package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/mocks"
)

type staticConnChecker struct {
	connected map[int64]bool
}

func (s *staticConnChecker) IsUserConnected(userID int64) bool {
	return s.connected[userID]
}

func setupPresenceRouter(handler *PresenceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/presence/:id", handler.Status)
	return r
}

func TestPresenceInvalidID(t *testing.T) {
	tracker := new(mocks.PresenceTracker)
	handler := NewPresenceHandler(tracker, &staticConnChecker{})
	router := setupPresenceRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/presence/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresenceLocalConnectionWins(t *testing.T) {
	tracker := new(mocks.PresenceTracker)
	handler := NewPresenceHandler(tracker, &staticConnChecker{connected: map[int64]bool{2: true}})
	router := setupPresenceRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/presence/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID int64 `json:"userId"`
		Online bool  `json:"online"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Online)
	tracker.AssertNotCalled(t, "IsOnline")
}

func TestPresenceFallsBackToTracker(t *testing.T) {
	tracker := new(mocks.PresenceTracker)
	handler := NewPresenceHandler(tracker, &staticConnChecker{})
	router := setupPresenceRouter(handler)

	tracker.On("IsOnline", mock.Anything, int64(2)).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/presence/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Online bool `json:"online"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Online)
	tracker.AssertExpectations(t)
}
