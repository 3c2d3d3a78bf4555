package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

func (s *PostgresStore) SaveTurn(ctx context.Context, conversationID uuid.UUID, userID int64, role Role, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, conversation_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, uuid.New(), conversationID, userID, string(role), content)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, userID int64, window int) ([]Turn, error) {
	if window <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT role, content, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, window)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0, window)
	for rows.Next() {
		var (
			turn Turn
			role string
		)
		if err := rows.Scan(&role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = Role(role)
		turns = append(turns, turn)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// Newest-first from the query, chronological for replay.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) SaveUserInfo(ctx context.Context, userID int64, name, locale string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, user_name, locale)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET user_name = EXCLUDED.user_name,
		    locale = EXCLUDED.locale
	`, userID, name, locale)
	if err != nil {
		return fmt.Errorf("save user info: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveFolder(ctx context.Context, userID int64, userName, folder string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, user_name, folder)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET user_name = EXCLUDED.user_name,
		    folder = EXCLUDED.folder
	`, userID, userName, folder)
	if err != nil {
		return fmt.Errorf("save folder: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastFolder(ctx context.Context, userID int64) (string, error) {
	var folder *string
	err := s.pool.QueryRow(ctx, "SELECT folder FROM users WHERE user_id = $1", userID).Scan(&folder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query last folder: %w", err)
	}
	if folder == nil {
		return "", nil
	}
	return *folder, nil
}

func (s *PostgresStore) CheckAccess(ctx context.Context, userID int64) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, "SELECT access_granted FROM users WHERE user_id = $1", userID).Scan(&granted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query access record: %w", err)
	}
	return granted, nil
}

func (s *PostgresStore) GrantAccess(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, access_granted)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET access_granted = TRUE
	`, userID)
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchLastActive(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, "UPDATE users SET last_active_at = NOW() WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

func (s *PostgresStore) LogEvent(ctx context.Context, event Event) {
	var conversationID any
	if event.ConversationID != uuid.Nil {
		conversationID = event.ConversationID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_log (id, user_id, kind, input, output, conversation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, uuid.New(), event.UserID, event.Kind, event.Input, event.Output, conversationID)
	if err != nil {
		s.logger.Error("write event log", zap.Int64("user_id", event.UserID), zap.Error(err))
	}
}

func (s *PostgresStore) LogException(ctx context.Context, userID int64, operation, detail string) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exception_log (id, user_id, operation, detail, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New(), userID, operation, detail)
	if err != nil {
		s.logger.Error("write exception log", zap.Int64("user_id", userID), zap.Error(err))
	}
}

var _ Store = (*PostgresStore)(nil)
