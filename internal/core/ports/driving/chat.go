package driving

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// ChatService answers user queries through the agentic tool loop.
type ChatService interface {
	// Chat runs one query to completion. sessionID may be empty, in
	// which case a new session is created; the assigned ID is returned
	// in the answer so the caller can continue the conversation.
	Chat(ctx context.Context, query, sessionID string) (*domain.ChatAnswer, error)
}
