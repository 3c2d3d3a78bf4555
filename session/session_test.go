package session_test

import (
	"testing"

	"github.com/arcdesk/docbot/session"
)

func TestStateStrings(t *testing.T) {
	cases := map[session.State]string{
		session.StateIdle:                     "idle",
		session.StateAwaitingFolderPath:       "awaiting_folder_path",
		session.StateAwaitingProjectSelection: "awaiting_project_selection",
		session.StateAwaitingQuestion:         "awaiting_question",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestStoreReusesSessionPerUser(t *testing.T) {
	store := session.NewStore()

	first := store.Get(7)
	again := store.Get(7)
	other := store.Get(8)

	if first != again {
		t.Fatal("expected the same session for one user")
	}
	if first == other {
		t.Fatal("expected distinct sessions for distinct users")
	}
	if first.UserID() != 7 || other.UserID() != 8 {
		t.Fatalf("unexpected user ids: %d, %d", first.UserID(), other.UserID())
	}
	if first.ConversationID() == other.ConversationID() {
		t.Fatal("expected distinct conversation ids")
	}
}

func TestSessionStateTransitions(t *testing.T) {
	sess := session.NewStore().Get(1)

	if sess.State() != session.StateIdle {
		t.Fatalf("new session must start idle, got %s", sess.State())
	}
	sess.SetState(session.StateAwaitingFolderPath)
	if sess.State() != session.StateAwaitingFolderPath {
		t.Fatalf("unexpected state: %s", sess.State())
	}
	sess.SetState(session.StateIdle)
	if sess.State() != session.StateIdle {
		t.Fatalf("unexpected state: %s", sess.State())
	}
}

func TestReadyGate(t *testing.T) {
	sess := session.NewStore().Get(1)

	if sess.Ready() {
		t.Fatal("session without corpus must not be ready")
	}
	if sess.ActiveIndex() != nil {
		t.Fatal("expected nil index before any corpus is set")
	}

	// A corpus without an index (failed build) keeps the gate closed.
	sess.SetCorpus("/docs", []string{"a.pdf"}, nil, 1.5)
	if sess.Ready() {
		t.Fatal("session without index must not be ready")
	}
	if sess.Folder() != "/docs" {
		t.Fatalf("unexpected folder: %q", sess.Folder())
	}
	if sess.ContextUsage() != 1.5 {
		t.Fatalf("unexpected context usage: %v", sess.ContextUsage())
	}

	sess.ClearCorpus()
	if sess.Folder() != "" || sess.Ready() || len(sess.ValidFiles()) != 0 {
		t.Fatal("ClearCorpus must drop every corpus field")
	}
	if sess.ContextUsage() != 0 {
		t.Fatalf("unexpected context usage after clear: %v", sess.ContextUsage())
	}
}

func TestValidFilesReturnsCopy(t *testing.T) {
	sess := session.NewStore().Get(1)
	sess.SetCorpus("/docs", []string{"a.pdf", "b.xlsx"}, nil, 0)

	files := sess.ValidFiles()
	files[0] = "mutated"

	if sess.ValidFiles()[0] != "a.pdf" {
		t.Fatal("ValidFiles must return a copy")
	}
}
