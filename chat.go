package server

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"pixelplaza/server/internal/net/proto"
)

// ChatHistory is the bounded, time-limited buffer of recent shared-world
// messages, replayed to every new joiner.
type ChatHistory interface {
	Append(ctx context.Context, msg proto.ChatMessage) error
	History(ctx context.Context) ([]proto.ChatMessage, error)
}

// MemoryChatHistory keeps the buffer in process memory. It is the default
// store; deployments that share history across restarts use the redis
// implementation in internal/store.
type MemoryChatHistory struct {
	mu       sync.Mutex
	messages []proto.ChatMessage
	clock    func() time.Time
}

func NewMemoryChatHistory() *MemoryChatHistory {
	return &MemoryChatHistory{clock: time.Now}
}

func (h *MemoryChatHistory) Append(_ context.Context, msg proto.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if excess := len(h.messages) - chatHistoryLimit; excess > 0 {
		h.messages = append(h.messages[:0], h.messages[excess:]...)
	}
	return nil
}

func (h *MemoryChatHistory) History(_ context.Context) ([]proto.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := h.clock().Add(-chatHistoryTTL)
	live := h.messages[:0]
	for _, msg := range h.messages {
		if msg.SentAt.After(cutoff) {
			live = append(live, msg)
		}
	}
	h.messages = live
	copied := make([]proto.ChatMessage, len(h.messages))
	copy(copied, h.messages)
	return copied, nil
}

// sanitizeChatText trims, strips control runes, and caps the message length.
// An empty result means the message should be dropped.
func sanitizeChatText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	runes := []rune(cleaned)
	if len(runes) > maxChatRunes {
		cleaned = string(runes[:maxChatRunes])
	}
	return cleaned
}

// sanitizeDisplayName strips control runes and caps the name at 32 runes.
func sanitizeDisplayName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	runes := []rune(cleaned)
	if len(runes) > 32 {
		cleaned = string(runes[:32])
	}
	return cleaned
}
