// Package bot drives the conversational state machine. It is transport
// agnostic: transports deliver Events and render Replies, while every
// decision about corpora, history, and generation lives here.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcdesk/docbot/chat"
	"github.com/arcdesk/docbot/config"
	"github.com/arcdesk/docbot/embeddings"
	"github.com/arcdesk/docbot/index"
	"github.com/arcdesk/docbot/ingestion"
	"github.com/arcdesk/docbot/session"
	"github.com/arcdesk/docbot/storage"
)

type Bot struct {
	cfg      config.Config
	sessions *session.Store
	store    storage.Store
	loader   *ingestion.Loader
	embedder embeddings.Embedder
	chat     *chat.Service
	resolver FolderResolver
	logger   *zap.Logger

	pipeline []Interceptor
}

func New(
	cfg config.Config,
	sessions *session.Store,
	store storage.Store,
	loader *ingestion.Loader,
	embedder embeddings.Embedder,
	chatSvc *chat.Service,
	resolver FolderResolver,
	logger *zap.Logger,
) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = LocalFolders{}
	}

	b := &Bot{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		loader:   loader,
		embedder: embedder,
		chat:     chatSvc,
		resolver: resolver,
		logger:   logger,
	}
	b.pipeline = []Interceptor{b.recordUser, b.gateAccess}
	return b
}

// Handle processes one user event to completion. Events of the same user
// are serialized in arrival order; different users proceed concurrently.
func (b *Bot) Handle(ctx context.Context, event Event) Reply {
	sess := b.sessions.Get(event.UserID)
	sess.LockTurn()
	defer sess.UnlockTurn()

	req := &request{event: event, sess: sess}

	for _, interceptor := range b.pipeline {
		reply, err := interceptor(ctx, req)
		if err != nil {
			b.logger.Error("interceptor failed", zap.Int64("user_id", event.UserID), zap.Error(err))
			b.store.LogException(ctx, event.UserID, "interceptor", err.Error())
			return Reply{Text: msgGenerationError}
		}
		if reply != nil {
			return *reply
		}
	}

	reply := b.dispatch(ctx, req)

	b.store.LogEvent(ctx, storage.Event{
		UserID:         event.UserID,
		Kind:           eventKind(event),
		Input:          event.Text,
		Output:         reply.Text,
		ConversationID: sess.ConversationID(),
	})
	return reply
}

func (b *Bot) dispatch(ctx context.Context, req *request) Reply {
	sess := req.sess
	event := req.event

	switch event.Command {
	case CommandStart:
		sess.SetState(session.StateIdle)
		return b.handleStart(ctx, req)

	case CommandFolder:
		sess.SetState(session.StateAwaitingFolderPath)
		return Reply{Text: msgFolderPrompt}

	case CommandProjects:
		if len(b.cfg.ProjectPaths) == 0 {
			return Reply{Text: msgNoProjects}
		}
		names := projectNames(b.cfg.ProjectPaths)
		sess.SetState(session.StateAwaitingProjectSelection)
		return Reply{
			Text:    "Please select a project:\n" + strings.Join(names, "\n"),
			Options: names,
		}

	case CommandKnowledgeBase:
		sess.SetState(session.StateIdle)
		return b.setCorpus(ctx, req, b.cfg.KnowledgeBasePath, "Knowledge base folder path set to")

	case CommandStatus:
		return b.handleStatus(req)

	case CommandAsk:
		if !sess.Ready() {
			return Reply{Text: msgNotIndexed}
		}
		sess.SetState(session.StateAwaitingQuestion)
		return Reply{Text: msgAskPrompt}
	}

	// Free-form text: either a flow continuation or a direct question.
	switch sess.State() {
	case session.StateAwaitingFolderPath:
		sess.SetState(session.StateIdle)
		return b.setCorpus(ctx, req, strings.TrimSpace(event.Text), "Folder path successfully set to")

	case session.StateAwaitingProjectSelection:
		sess.SetState(session.StateIdle)
		return b.selectProject(ctx, req)

	case session.StateAwaitingQuestion:
		sess.SetState(session.StateIdle)
		return b.answer(ctx, req, event.Text)

	default:
		return b.answer(ctx, req, event.Text)
	}
}

func (b *Bot) handleStart(ctx context.Context, req *request) Reply {
	userID := req.event.UserID

	granted, err := b.store.CheckAccess(ctx, userID)
	if err != nil {
		b.logger.Warn("check access on start", zap.Int64("user_id", userID), zap.Error(err))
		granted = false
	}

	lastFolder := ""
	if granted {
		lastFolder, err = b.store.LastFolder(ctx, userID)
		if err != nil {
			b.logger.Warn("load last folder", zap.Int64("user_id", userID), zap.Error(err))
			lastFolder = ""
		}
	}
	if lastFolder == "" {
		return Reply{Text: msgIntro}
	}

	// Indexes are memory-only; restore the returning user's corpus from
	// the persisted folder path.
	usage, err := b.indexCorpus(ctx, req, lastFolder)
	switch {
	case err == nil:
	case errors.Is(err, ingestion.ErrInvalidFolderPath), errors.Is(err, ingestion.ErrNoValidFiles):
		return Reply{Text: fmt.Sprintf(
			"Welcome back, %s! However, no valid files were found in your last folder: %s.\n\n%s",
			req.event.UserName, lastFolder, msgIntro)}
	default:
		b.logger.Error("restore corpus on start", zap.Int64("user_id", userID), zap.Error(err))
		b.store.LogException(ctx, userID, "start_restore", err.Error())
		return Reply{Text: fmt.Sprintf(
			"Welcome back, %s! However, an error occurred while loading and indexing your last folder: %s. Please try again later.\n\n%s",
			req.event.UserName, lastFolder, msgIntro)}
	}

	return Reply{Text: fmt.Sprintf(
		"Welcome back, %s! I have loaded your previous folder for context:\n\n%s\n\n"+
			"Context storage is %.2f%% full.\n\n%s",
		req.event.UserName, lastFolder, usage, msgIntro)}
}

func (b *Bot) selectProject(ctx context.Context, req *request) Reply {
	choice := strings.TrimSpace(req.event.Text)
	folder, ok := b.cfg.ProjectPaths[strings.ToLower(choice)]
	if !ok {
		return Reply{Text: msgInvalidProject}
	}
	return b.setCorpus(ctx, req, folder, "Project folder path set to")
}

// setCorpus resolves, loads, and indexes a folder, then reports the
// outcome with a fixed message per error kind.
func (b *Bot) setCorpus(ctx context.Context, req *request, folder, successPrefix string) Reply {
	usage, err := b.indexCorpus(ctx, req, folder)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf(
			"%s: %s\n\nValid files have been indexed.\n\nContext storage is %.2f%% full.",
			successPrefix, folder, usage)}
	case errors.Is(err, ingestion.ErrInvalidFolderPath):
		return Reply{Text: msgInvalidFolder}
	case errors.Is(err, ingestion.ErrNoValidFiles):
		return Reply{Text: msgNoValidFiles}
	default:
		b.logger.Error("index corpus", zap.Int64("user_id", req.event.UserID), zap.Error(err))
		b.store.LogException(ctx, req.event.UserID, "index_corpus", err.Error())
		return Reply{Text: msgIndexingError}
	}
}

// indexCorpus builds a complete replacement index and swaps it in only on
// success; any failure leaves the previous corpus active.
func (b *Bot) indexCorpus(ctx context.Context, req *request, folder string) (float64, error) {
	path, err := b.resolver.Resolve(ctx, folder)
	if err != nil {
		return 0, err
	}

	documents, err := b.loader.LoadFolder(path)
	if err != nil {
		return 0, err
	}

	idx, err := index.Build(ctx, uuid.New().String(), documents, b.embedder, index.Options{
		ChunkSize:    b.cfg.Corpus.ChunkSize,
		ChunkOverlap: b.cfg.Corpus.ChunkOverlap,
	})
	if err != nil {
		return 0, err
	}

	usage := 0.0
	tokens, err := ingestion.CountTokens(documents, b.cfg.LLM.Model)
	if err != nil {
		b.logger.Warn("count corpus tokens", zap.String("folder", path), zap.Error(err))
	} else {
		usage = ingestion.ContextUsagePercent(tokens, b.cfg.Corpus.MaxContextTokens)
	}

	req.sess.SetCorpus(path, ingestion.Filenames(documents), idx, usage)

	if err := b.store.SaveFolder(ctx, req.event.UserID, req.event.UserName, path); err != nil {
		b.logger.Warn("persist folder", zap.Int64("user_id", req.event.UserID), zap.Error(err))
	}

	b.logger.Info("corpus indexed",
		zap.Int64("user_id", req.event.UserID),
		zap.String("folder", path),
		zap.Int("documents", len(documents)),
		zap.Int("chunks", idx.ChunkCount()))
	return usage, nil
}

// answer runs the retrieval-augmented turn behind the readiness gate.
func (b *Bot) answer(ctx context.Context, req *request, question string) Reply {
	sess := req.sess
	userID := req.event.UserID

	if !sess.Ready() {
		return Reply{Text: msgNotIndexed}
	}

	// History is read before the current turn is persisted, so the
	// rewrite sees strictly earlier turns only.
	history, err := b.store.RecentTurns(ctx, userID, b.cfg.History.Window)
	if err != nil {
		b.logger.Error("load history", zap.Int64("user_id", userID), zap.Error(err))
		b.store.LogException(ctx, userID, "load_history", err.Error())
		return Reply{Text: msgGenerationError}
	}

	resp, err := b.chat.Answer(ctx, sess.ActiveIndex(), history, question)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotReady) {
			return Reply{Text: msgNotIndexed}
		}
		b.logger.Error("answer question", zap.Int64("user_id", userID), zap.Error(err))
		b.store.LogException(ctx, userID, "answer", err.Error())
		return Reply{Text: msgGenerationError}
	}

	conversationID := sess.ConversationID()
	if err := b.store.SaveTurn(ctx, conversationID, userID, storage.RoleUser, question); err != nil {
		b.logger.Warn("persist user turn", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := b.store.SaveTurn(ctx, conversationID, userID, storage.RoleAssistant, resp.Answer); err != nil {
		b.logger.Warn("persist assistant turn", zap.Int64("user_id", userID), zap.Error(err))
	}

	return Reply{Text: resp.Answer, Citations: resp.Citations}
}

func (b *Bot) handleStatus(req *request) Reply {
	sess := req.sess
	name := req.event.UserName

	folder := sess.Folder()
	if folder == "" {
		return Reply{Text: fmt.Sprintf(
			"Status Information:\n\nName: %s\nNo folder path has been set yet. Please set it using the /folder command.",
			name)}
	}

	files := sess.ValidFiles()
	if len(files) == 0 {
		return Reply{Text: fmt.Sprintf(
			"Status Information:\n\nName: %s\nThe folder path is currently set to: %s, but no valid files were found.",
			name, folder)}
	}

	return Reply{Text: fmt.Sprintf(
		"Status Information:\n\nName: %s\nThe folder path is currently set to: %s\n\nValid Files:\n%s\n\nContext storage is %.2f%% full.",
		name, folder, strings.Join(files, "\n"), sess.ContextUsage())}
}

func projectNames(paths map[string]string) []string {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func eventKind(event Event) string {
	if event.Command != CommandNone {
		return string(event.Command)
	}
	return "message"
}
