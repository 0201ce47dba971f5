package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const TypeMessageNotification = "notification:message"

// MessageNotification is enqueued for each conversation participant who is
// offline when a message is persisted; a worker elsewhere turns it into a
// push notification.
type MessageNotification struct {
	UserID         int64 `json:"user_id"`
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
	SenderID       int64 `json:"sender_id"`
}

type Client interface {
	EnqueueMessageNotification(ctx context.Context, n MessageNotification) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

func NewAsynqClient(redisURL string) (Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis url: %w", err)
	}
	return &asynqClient{client: asynq.NewClient(opt)}, nil
}

func (c *asynqClient) EnqueueMessageNotification(ctx context.Context, n MessageNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeMessageNotification, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue("notifications"), asynq.MaxRetry(3))
	return err
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}

type noopClient struct{}

// NewNoopClient returns a client that drops tasks when Redis is not configured.
func NewNoopClient() Client { return &noopClient{} }

func (n *noopClient) EnqueueMessageNotification(ctx context.Context, task MessageNotification) error {
	logrus.Debugf("queue not configured; dropping notification for user %d", task.UserID)
	return nil
}

func (n *noopClient) Close() error { return nil }
