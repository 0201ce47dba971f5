package services

import (
	"context"

	"chat-service/internal/models"
	"chat-service/internal/repositories"
)

// Profile is the password-free projection of a user returned by every
// read surface.
type Profile struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl"`
}

type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := toProfile(user)
	return &p, nil
}

// Profiles resolves each id independently. An id that cannot be resolved
// yields a profile with only the id set; a missing user never fails the
// whole call.
func (s *UserService) Profiles(ctx context.Context, ids []int64) []Profile {
	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			profiles = append(profiles, Profile{ID: id})
			continue
		}
		profiles = append(profiles, toProfile(user))
	}
	return profiles
}

// SearchFriends runs the friends search: a pattern match on name/email OR
// membership in the caller's friend set, so results are not limited to
// friends (long-standing behavior the client depends on).
func (s *UserService) SearchFriends(ctx context.Context, query string, friendIDs []int64) ([]Profile, error) {
	users, err := s.users.SearchFriends(ctx, query, friendIDs)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, toProfile(&users[i]))
	}
	return profiles, nil
}

func toProfile(user *models.User) Profile {
	return Profile{
		ID:              user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Email:           user.Email,
		ProfileImageURL: user.ProfileImageURL,
	}
}
