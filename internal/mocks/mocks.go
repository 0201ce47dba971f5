package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-service/internal/models"
	"chat-service/internal/presence"
	"chat-service/internal/queue"
	"chat-service/internal/rabbitmq"
	"chat-service/internal/repositories"
)

var (
	_ repositories.UserRepository   = (*UserRepository)(nil)
	_ repositories.FriendRepository = (*FriendRepository)(nil)
	_ repositories.ChatRepository   = (*ChatRepository)(nil)
	_ rabbitmq.Publisher            = (*Publisher)(nil)
	_ presence.Tracker              = (*PresenceTracker)(nil)
	_ queue.Client                  = (*QueueClient)(nil)
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) SearchByNameOrEmail(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	if u := args.Get(0); u != nil {
		return u.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) SearchFriends(ctx context.Context, query string, friendIDs []int64) ([]models.User, error) {
	args := m.Called(ctx, query, friendIDs)
	if u := args.Get(0); u != nil {
		return u.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type FriendRepository struct {
	mock.Mock
}

func (m *FriendRepository) HasFriendRecord(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepository) ListFriends(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if ids := args.Get(0); ids != nil {
		return ids.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FriendRepository) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepository) RemoveFriendship(ctx context.Context, userID, friendID int64) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendRepository) CreateRequest(ctx context.Context, senderID, receiverID int64) (*models.FriendRequest, error) {
	args := m.Called(ctx, senderID, receiverID)
	if r := args.Get(0); r != nil {
		return r.(*models.FriendRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FriendRepository) ListRequestsForUser(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.([]models.FriendRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FriendRepository) GetRequest(ctx context.Context, requestID int64) (*models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	if r := args.Get(0); r != nil {
		return r.(*models.FriendRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FriendRepository) HasPendingRequest(ctx context.Context, userID, otherID int64) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepository) AcceptRequest(ctx context.Context, requestID, actingUserID int64) error {
	args := m.Called(ctx, requestID, actingUserID)
	return args.Error(0)
}

func (m *FriendRepository) DeclineRequest(ctx context.Context, requestID int64) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) FindOrCreateConversation(ctx context.Context, participantIDs []int64, name, convType string) (*models.Conversation, bool, error) {
	args := m.Called(ctx, participantIDs, name, convType)
	if conv := args.Get(0); conv != nil {
		return conv.(*models.Conversation), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *ChatRepository) ListConversationsForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if convs := args.Get(0); convs != nil {
		return convs.([]models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) GetConversationForUser(ctx context.Context, conversationID, userID int64) (*models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	if conv := args.Get(0); conv != nil {
		return conv.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepository) ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	if ids := args.Get(0); ids != nil {
		return ids.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) AppendMessage(ctx context.Context, conversationID, senderID int64, content string) (*models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	if msg := args.Get(0); msg != nil {
		return msg.(*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) ListMessages(ctx context.Context, conversationID, forUserID int64) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, forUserID)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) ClearConversationForUser(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *Publisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type PresenceTracker struct {
	mock.Mock
}

func (m *PresenceTracker) SetOnline(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *PresenceTracker) SetOffline(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *PresenceTracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *PresenceTracker) Close() error {
	args := m.Called()
	return args.Error(0)
}

type QueueClient struct {
	mock.Mock
}

func (m *QueueClient) EnqueueMessageNotification(ctx context.Context, n queue.MessageNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *QueueClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
