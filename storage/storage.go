// Package storage is the persistence boundary: conversation history,
// user records, the access gate data, and the write-only audit trail.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user or assistant message within a conversation.
type Turn struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

type Event struct {
	UserID         int64
	Kind           string
	Input          string
	Output         string
	ConversationID uuid.UUID
}

type TurnStore interface {
	SaveTurn(ctx context.Context, conversationID uuid.UUID, userID int64, role Role, content string) error

	// RecentTurns returns the most recent turns for the user in
	// chronological order. The window counts turns, not exchanges.
	RecentTurns(ctx context.Context, userID int64, window int) ([]Turn, error)
}

type UserStore interface {
	SaveUserInfo(ctx context.Context, userID int64, name, locale string) error
	SaveFolder(ctx context.Context, userID int64, userName, folder string) error

	// LastFolder returns the persisted folder path, or "" when the user
	// has never set one.
	LastFolder(ctx context.Context, userID int64) (string, error)

	CheckAccess(ctx context.Context, userID int64) (bool, error)
	GrantAccess(ctx context.Context, userID int64) error
	TouchLastActive(ctx context.Context, userID int64) error
}

// AuditLog is fire-and-forget: implementations swallow their own errors
// after logging them, the core never reads the trail back.
type AuditLog interface {
	LogEvent(ctx context.Context, event Event)
	LogException(ctx context.Context, userID int64, operation, detail string)
}

type Store interface {
	TurnStore
	UserStore
	AuditLog
}
