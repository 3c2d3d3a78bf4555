// Package chat is the retrieval-augmented conversation core: it rewrites
// follow-up questions into standalone search queries, retrieves grounding
// chunks from the caller's index, and synthesizes a cited answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arcdesk/docbot/index"
	"github.com/arcdesk/docbot/llm"
	"github.com/arcdesk/docbot/storage"
)

// ErrGenerationFailed reports an embedding or LLM call failure. Callers
// show a fixed retry message; the wrapped cause goes to the audit trail
// only.
var ErrGenerationFailed = errors.New("generation failed")

const defaultRetrieverK = 5

const rewriteInstruction = "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation. Return only the query."

const systemPromptFormat = "You are a project assistant on design and construction projects. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, say that you don't know. " +
	"If you need to use current date, today is %s." +
	"\n\n%s"

// Retriever returns the top-k chunks for a standalone query. *index.Index
// satisfies it; the index is always passed in explicitly, never held by
// the service, so one Service instance can serve every user.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.Chunk, error)
}

type Service struct {
	llm    llm.Client
	logger *zap.Logger
	k      int
	now    func() time.Time
}

func NewService(llmClient llm.Client, logger *zap.Logger, retrieverK int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrieverK <= 0 {
		retrieverK = defaultRetrieverK
	}
	return &Service{
		llm:    llmClient,
		logger: logger,
		k:      retrieverK,
		now:    time.Now,
	}
}

// Answer runs one conversational turn: rewrite (when history exists),
// retrieve, synthesize. The citations are the distinct source tags of the
// chunks the synthesizer was actually given, never of anything else.
func (s *Service) Answer(ctx context.Context, retriever Retriever, history []storage.Turn, utterance string) (Response, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Response{}, fmt.Errorf("utterance cannot be empty")
	}
	if retriever == nil {
		return Response{}, index.ErrIndexNotReady
	}

	query := utterance
	if len(history) > 0 {
		rewritten, err := s.Rewrite(ctx, history, utterance)
		if err != nil {
			return Response{}, err
		}
		query = rewritten
	}

	chunks, err := retriever.Retrieve(ctx, query, s.k)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotReady) {
			return Response{}, err
		}
		return Response{}, fmt.Errorf("%w: retrieve: %w", ErrGenerationFailed, err)
	}

	answer, err := s.Synthesize(ctx, chunks, history, utterance)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Answer:    answer,
		Citations: distinctSources(chunks),
		Query:     query,
	}, nil
}

// Rewrite turns a context-dependent follow-up into a standalone search
// query using the replayed turn window. A failed call surfaces as
// ErrGenerationFailed; the raw utterance is never substituted silently.
func (s *Service) Rewrite(ctx context.Context, history []storage.Turn, utterance string) (string, error) {
	messages := historyMessages(history)
	messages = append(messages,
		llm.Message{Role: llm.RoleUser, Content: utterance},
		llm.Message{Role: llm.RoleUser, Content: rewriteInstruction},
	)

	rewritten, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: rewrite query: %w", ErrGenerationFailed, err)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return "", fmt.Errorf("%w: rewrite produced an empty query", ErrGenerationFailed)
	}

	s.logger.Debug("rewrote follow-up into standalone query", zap.String("query", rewritten))
	return rewritten, nil
}

// Synthesize produces the grounded answer from the supplied chunks, the
// replayed history, and the current utterance.
func (s *Service) Synthesize(ctx context.Context, chunks []index.Chunk, history []storage.Turn, utterance string) (string, error) {
	system := fmt.Sprintf(systemPromptFormat, s.now().Format("2006-01-02, 15:04:05"), contextBlock(chunks))

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: utterance})

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: synthesize answer: %w", ErrGenerationFailed, err)
	}

	return strings.TrimSpace(answer), nil
}

func historyMessages(history []storage.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == storage.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages
}

func contextBlock(chunks []index.Chunk) string {
	if len(chunks) == 0 {
		return "No context was retrieved."
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(fmt.Sprintf("[source: %s]\n%s\n\n", chunk.Source, chunk.Text))
	}
	return strings.TrimSpace(sb.String())
}

func distinctSources(chunks []index.Chunk) []string {
	if len(chunks) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Source == "" {
			continue
		}
		if _, ok := seen[chunk.Source]; ok {
			continue
		}
		seen[chunk.Source] = struct{}{}
		sources = append(sources, chunk.Source)
	}
	sort.Strings(sources)
	return sources
}
