package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-service/internal/apperrors"
	"chat-service/internal/mocks"
	"chat-service/internal/models"
)

func TestProfilesToleratesMissingUsers(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := NewUserService(users)

	users.On("GetByID", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, FirstName: "Alice", Password: "hash"}, nil).Once()
	users.On("GetByID", mock.Anything, int64(2)).
		Return(nil, apperrors.NotFound("user not found")).Once()

	profiles := svc.Profiles(context.Background(), []int64{1, 2})

	require.Len(t, profiles, 2)
	require.Equal(t, "Alice", profiles[0].FirstName)
	require.Equal(t, int64(2), profiles[1].ID)
	require.Empty(t, profiles[1].FirstName)
}

func TestGetProfileStripsPassword(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := NewUserService(users)

	users.On("GetByID", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, FirstName: "Alice", Password: "hash"}, nil).Once()

	profile, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), profile.ID)
	// Profile carries no password field at all; spot-check the projection.
	require.Equal(t, "Alice", profile.FirstName)
}

func TestSearchFriendsMapsUsers(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := NewUserService(users)

	users.On("SearchFriends", mock.Anything, "bo", []int64{2, 3}).Return([]models.User{
		{ID: 2, FirstName: "Bob"},
		{ID: 9, FirstName: "Bonnie"},
	}, nil).Once()

	profiles, err := svc.SearchFriends(context.Background(), "bo", []int64{2, 3})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, int64(9), profiles[1].ID)
}
