// Package api exposes the assistant over HTTP. It is one of the
// transports: it decodes events, hands them to the bot, and renders the
// reply as JSON without touching any conversational logic.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/arcdesk/docbot/bot"
)

type Server struct {
	bot     *bot.Bot
	logger  *zap.Logger
	handler http.Handler
}

type eventRequest struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Locale   string `json:"locale"`
	Command  string `json:"command"`
	Text     string `json:"text"`
}

type eventResponse struct {
	Reply     string   `json:"reply"`
	Citations []string `json:"citations,omitempty"`
	Options   []string `json:"options,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(b *bot.Bot, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{bot: b, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/events", s.handleEvent)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}

	command, ok := parseCommand(req.Command)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown command"})
		return
	}

	reply := s.bot.Handle(r.Context(), bot.Event{
		UserID:   req.UserID,
		UserName: req.UserName,
		Locale:   req.Locale,
		Command:  command,
		Text:     req.Text,
	})

	writeJSON(w, http.StatusOK, eventResponse{
		Reply:     reply.Text,
		Citations: reply.Citations,
		Options:   reply.Options,
	})
}

func parseCommand(raw string) (bot.Command, bool) {
	switch bot.Command(strings.TrimSpace(strings.TrimPrefix(raw, "/"))) {
	case bot.CommandNone:
		return bot.CommandNone, true
	case bot.CommandStart:
		return bot.CommandStart, true
	case bot.CommandFolder:
		return bot.CommandFolder, true
	case bot.CommandProjects:
		return bot.CommandProjects, true
	case bot.CommandKnowledgeBase:
		return bot.CommandKnowledgeBase, true
	case bot.CommandStatus:
		return bot.CommandStatus, true
	case bot.CommandAsk:
		return bot.CommandAsk, true
	default:
		return bot.CommandNone, false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
