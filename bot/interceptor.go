package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/arcdesk/docbot/session"
	"github.com/arcdesk/docbot/storage"
)

// request is the unit flowing through the interceptor pipeline.
type request struct {
	event Event
	sess  *session.UserSession
}

// Interceptor runs before the command handlers. A non-nil Reply
// short-circuits the pipeline and becomes the user-visible response; the
// ordering of the pipeline slice is the ordering of execution.
type Interceptor func(ctx context.Context, req *request) (*Reply, error)

// recordUser keeps the user record current on every contact.
func (b *Bot) recordUser(ctx context.Context, req *request) (*Reply, error) {
	if err := b.store.SaveUserInfo(ctx, req.event.UserID, req.event.UserName, req.event.Locale); err != nil {
		b.logger.Warn("save user info", zap.Int64("user_id", req.event.UserID), zap.Error(err))
	}
	return nil, nil
}

// gateAccess short-circuits any event that would index documents or call
// the language model when the user has no access grant. Conversation
// state does not advance and no turn is persisted.
func (b *Bot) gateAccess(ctx context.Context, req *request) (*Reply, error) {
	if !requiresAccess(req) {
		return nil, nil
	}

	granted, err := b.store.CheckAccess(ctx, req.event.UserID)
	if err != nil {
		return nil, err
	}
	if !granted {
		b.store.LogEvent(ctx, storage.Event{
			UserID:         req.event.UserID,
			Kind:           "access_denied",
			Input:          req.event.Text,
			ConversationID: req.sess.ConversationID(),
		})
		return &Reply{Text: msgAccessDenied}, nil
	}

	if err := b.store.TouchLastActive(ctx, req.event.UserID); err != nil {
		b.logger.Warn("touch last active", zap.Int64("user_id", req.event.UserID), zap.Error(err))
	}
	return nil, nil
}

func requiresAccess(req *request) bool {
	switch req.event.Command {
	case CommandFolder, CommandProjects, CommandKnowledgeBase, CommandAsk:
		return true
	case CommandStart, CommandStatus:
		return false
	}
	// Free-form text: flow continuations and direct questions all lead to
	// indexing or generation work.
	return true
}
