package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arcdesk/docbot/database"
	"github.com/arcdesk/docbot/storage"
)

// Round-trip checks against a live database. Gated so the unit suite
// stays hermetic.
func TestPostgresStoreRoundTrip(t *testing.T) {
	if os.Getenv("RUN_DB_INTEGRATION_TESTS") != "1" {
		t.Skip("set RUN_DB_INTEGRATION_TESTS=1 to run database round-trip checks")
	}

	dsn := os.Getenv("DOCBOT_POSTGRES_DSN")
	if dsn == "" {
		dsn = "postgres://localhost:5432/docbot?sslmode=disable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, dsn)
	if err != nil {
		t.Fatalf("create postgres pool: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	store := storage.NewPostgresStore(pool, nil)
	userID := time.Now().UnixNano()
	conversationID := uuid.New()

	if granted, err := store.CheckAccess(ctx, userID); err != nil || granted {
		t.Fatalf("fresh user must have no access: granted=%v err=%v", granted, err)
	}
	if err := store.GrantAccess(ctx, userID); err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if granted, err := store.CheckAccess(ctx, userID); err != nil || !granted {
		t.Fatalf("expected access granted: granted=%v err=%v", granted, err)
	}

	if folder, err := store.LastFolder(ctx, userID); err != nil || folder != "" {
		t.Fatalf("fresh user must have no folder: folder=%q err=%v", folder, err)
	}
	if err := store.SaveFolder(ctx, userID, "Dana", "/srv/docs"); err != nil {
		t.Fatalf("save folder: %v", err)
	}
	if folder, err := store.LastFolder(ctx, userID); err != nil || folder != "/srv/docs" {
		t.Fatalf("expected persisted folder: folder=%q err=%v", folder, err)
	}

	if err := store.SaveTurn(ctx, conversationID, userID, storage.RoleUser, "What is the budget?"); err != nil {
		t.Fatalf("save user turn: %v", err)
	}
	if err := store.SaveTurn(ctx, conversationID, userID, storage.RoleAssistant, "It is 42000."); err != nil {
		t.Fatalf("save assistant turn: %v", err)
	}

	turns, err := store.RecentTurns(ctx, userID, 10)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != storage.RoleUser || turns[1].Role != storage.RoleAssistant {
		t.Fatalf("turns out of order: %+v", turns)
	}

	store.LogEvent(ctx, storage.Event{
		UserID:         userID,
		Kind:           "message",
		Input:          "What is the budget?",
		Output:         "It is 42000.",
		ConversationID: conversationID,
	})
	store.LogException(ctx, userID, "answer", "synthetic failure for the round-trip check")
}
