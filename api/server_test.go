package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/arcdesk/docbot/api"
	"github.com/arcdesk/docbot/bot"
	"github.com/arcdesk/docbot/chat"
	"github.com/arcdesk/docbot/config"
	"github.com/arcdesk/docbot/ingestion"
	"github.com/arcdesk/docbot/llm"
	"github.com/arcdesk/docbot/session"
	"github.com/arcdesk/docbot/storage"
)

type noopStore struct{}

func (noopStore) SaveTurn(context.Context, uuid.UUID, int64, storage.Role, string) error {
	return nil
}
func (noopStore) RecentTurns(context.Context, int64, int) ([]storage.Turn, error) { return nil, nil }
func (noopStore) SaveUserInfo(context.Context, int64, string, string) error       { return nil }
func (noopStore) SaveFolder(context.Context, int64, string, string) error         { return nil }
func (noopStore) LastFolder(context.Context, int64) (string, error)               { return "", nil }
func (noopStore) CheckAccess(context.Context, int64) (bool, error)                { return true, nil }
func (noopStore) GrantAccess(context.Context, int64) error                        { return nil }
func (noopStore) TouchLastActive(context.Context, int64) error                    { return nil }
func (noopStore) LogEvent(context.Context, storage.Event)                         {}
func (noopStore) LogException(context.Context, int64, string, string)             {}

var _ storage.Store = noopStore{}

type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type noopModel struct{}

func (noopModel) Generate(context.Context, []llm.Message) (string, error) { return "ok", nil }

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	b := bot.New(
		config.Config{},
		session.NewStore(),
		noopStore{},
		ingestion.NewLoader(nil),
		noopEmbedder{},
		chat.NewService(noopModel{}, nil, 3),
		nil,
		nil,
	)
	return api.New(b, nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestEventEndpointValidation(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{not json", http.StatusBadRequest},
		{"missing user", `{"text":"hello"}`, http.StatusBadRequest},
		{"unknown command", `{"userId":1,"command":"frobnicate"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(tc.body))
			server.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestEventEndpointStart(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/events",
		strings.NewReader(`{"userId":1,"userName":"Dana","command":"/start"}`))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Reply, "Welcome to the AI document assistant!") {
		t.Fatalf("unexpected reply: %q", resp.Reply)
	}
}
