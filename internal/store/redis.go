package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	server "pixelplaza/server"
	"pixelplaza/server/internal/net/proto"
)

// chatHistoryKey is the fixed cache key for the single global chat buffer.
const chatHistoryKey = "plaza:chat:history"

// RedisChatHistory keeps the shared-world chat buffer in a redis list so it
// survives process restarts: newest entries are pushed to the head, the list
// is trimmed to the retention limit after every append, and the key expires
// after the retention window.
type RedisChatHistory struct {
	client *redis.Client
}

func NewRedisChatHistory(ctx context.Context, addr string) (*RedisChatHistory, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return &RedisChatHistory{client: client}, nil
}

func (h *RedisChatHistory) Close() error {
	return h.client.Close()
}

// Append implements server.ChatHistory.
func (h *RedisChatHistory) Append(ctx context.Context, msg proto.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store: encode chat message: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, chatHistoryKey, data)
	pipe.LTrim(ctx, chatHistoryKey, 0, server.ChatHistoryLimit-1)
	pipe.Expire(ctx, chatHistoryKey, server.ChatHistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: append chat message: %w", err)
	}
	return nil
}

// History implements server.ChatHistory, returning oldest-first.
func (h *RedisChatHistory) History(ctx context.Context) ([]proto.ChatMessage, error) {
	raw, err := h.client.LRange(ctx, chatHistoryKey, 0, server.ChatHistoryLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read chat history: %w", err)
	}

	messages := make([]proto.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg proto.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
