// Package session holds per-user runtime state: the active corpus and its
// index, the conversational state machine position, and the locks that
// keep one user's turns ordered while different users run concurrently.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/arcdesk/docbot/index"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingFolderPath
	StateAwaitingProjectSelection
	StateAwaitingQuestion
)

func (s State) String() string {
	switch s {
	case StateAwaitingFolderPath:
		return "awaiting_folder_path"
	case StateAwaitingProjectSelection:
		return "awaiting_project_selection"
	case StateAwaitingQuestion:
		return "awaiting_question"
	default:
		return "idle"
	}
}

// UserSession owns one user's active corpus. The index pointer is swapped
// wholesale under the state lock; readers take a snapshot and keep using
// it even if a re-index lands mid-retrieval.
type UserSession struct {
	userID         int64
	conversationID uuid.UUID

	// turnMu serializes event handling for this user so every turn sees
	// the persisted history of strictly earlier turns.
	turnMu sync.Mutex

	mu           sync.Mutex
	state        State
	folderPath   string
	validFiles   []string
	contextUsage float64
	idx          *index.Index
}

func (s *UserSession) UserID() int64             { return s.userID }
func (s *UserSession) ConversationID() uuid.UUID { return s.conversationID }

// LockTurn blocks until this user's previous event is fully handled.
func (s *UserSession) LockTurn()   { s.turnMu.Lock() }
func (s *UserSession) UnlockTurn() { s.turnMu.Unlock() }

func (s *UserSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *UserSession) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *UserSession) Folder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folderPath
}

func (s *UserSession) ValidFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]string, len(s.validFiles))
	copy(files, s.validFiles)
	return files
}

// ActiveIndex returns the current index snapshot; nil when no corpus has
// been indexed successfully.
func (s *UserSession) ActiveIndex() *index.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}

// ContextUsage is the share of the model context budget the active
// corpus occupies, captured at index time for status reports.
func (s *UserSession) ContextUsage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextUsage
}

// SetCorpus atomically replaces the active corpus with a fully built
// index. Partial state is never visible: callers build first, swap after.
func (s *UserSession) SetCorpus(folder string, files []string, idx *index.Index, usagePercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderPath = folder
	s.validFiles = files
	s.idx = idx
	s.contextUsage = usagePercent
}

func (s *UserSession) ClearCorpus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderPath = ""
	s.validFiles = nil
	s.idx = nil
	s.contextUsage = 0
}

// Ready is the readiness gate: questions are answered only when an index
// was built successfully over a non-empty supported-file set.
func (s *UserSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx != nil && len(s.validFiles) > 0
}

// Store is the keyed session registry, one UserSession per user id.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*UserSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*UserSession)}
}

// Get returns the user's session, creating it with a fresh conversation
// id on first contact.
func (st *Store) Get(userID int64) *UserSession {
	st.mu.RLock()
	sess, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return sess
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[userID]; ok {
		return sess
	}
	sess = &UserSession{
		userID:         userID,
		conversationID: uuid.New(),
	}
	st.sessions[userID] = sess
	return sess
}
