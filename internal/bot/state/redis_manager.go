package state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// dialogTTL clears abandoned registration dialogs.
const dialogTTL = 24 * time.Hour

// RedisManager keeps the caretaker registry in Redis so every replica can deliver.
type RedisManager struct {
	client *redis.Client
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "", // no password
		DB:           0,  // default DB
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisManager creates a Redis-based state manager
func NewRedisManager(client *redis.Client) *RedisManager {
	return &RedisManager{client: client}
}

func caretakerKey(caretakerID string) string {
	return fmt.Sprintf("caretaker:%s:chat", caretakerID)
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("chat:%d:caretaker", chatID)
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("chat:%d:state", chatID)
}

// RegisterCaretaker links caretakerID to chatID. A chat follows one caretaker at a time,
// and a caretaker moving chats leaves no link behind on the old one.
func (m *RedisManager) RegisterCaretaker(ctx context.Context, caretakerID string, chatID int64) error {
	previousCaretaker, err := m.client.Get(ctx, chatKey(chatID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read chat registration: %w", err)
	}
	previousChat, hadChat, err := m.ChatForCaretaker(ctx, caretakerID)
	if err != nil {
		return err
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previousCaretaker != "" && previousCaretaker != caretakerID {
			pipe.Del(ctx, caretakerKey(previousCaretaker))
		}
		if hadChat && previousChat != chatID {
			pipe.Del(ctx, chatKey(previousChat))
		}
		pipe.Set(ctx, caretakerKey(caretakerID), chatID, 0)
		pipe.Set(ctx, chatKey(chatID), caretakerID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register caretaker: %w", err)
	}
	return nil
}

// UnregisterChat removes the chat's link and returns the caretaker it served. The
// caretaker's link is only dropped while it still points at this chat.
func (m *RedisManager) UnregisterChat(ctx context.Context, chatID int64) (string, error) {
	caretakerID, err := m.client.Get(ctx, chatKey(chatID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read chat registration: %w", err)
	}

	currentChat, ok, err := m.ChatForCaretaker(ctx, caretakerID)
	if err != nil {
		return "", err
	}

	keys := []string{chatKey(chatID)}
	if ok && currentChat == chatID {
		keys = append(keys, caretakerKey(caretakerID))
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return "", fmt.Errorf("failed to unregister chat: %w", err)
	}
	return caretakerID, nil
}

func (m *RedisManager) ChatForCaretaker(ctx context.Context, caretakerID string) (int64, bool, error) {
	raw, err := m.client.Get(ctx, caretakerKey(caretakerID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read caretaker chat: %w", err)
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt chat id for caretaker %s: %w", caretakerID, err)
	}
	return chatID, true, nil
}

// SetUserState sets the dialog state with TTL
func (m *RedisManager) SetUserState(ctx context.Context, chatID int64, state string) error {
	if state == None {
		return m.client.Del(ctx, stateKey(chatID)).Err()
	}
	return m.client.Set(ctx, stateKey(chatID), state, dialogTTL).Err()
}

// GetUserState gets the dialog state, falling back to None on a miss or error
func (m *RedisManager) GetUserState(ctx context.Context, chatID int64) string {
	result, err := m.client.Get(ctx, stateKey(chatID)).Result()
	if err != nil {
		return None
	}
	return result
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}
