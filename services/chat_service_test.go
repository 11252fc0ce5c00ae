package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/ragchat/agent"
	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/storage"
	"github/itish2003/ragchat/tools"
)

type stubRunner struct {
	answer  string
	err     error
	history [][]models.Message
}

func (s *stubRunner) Run(_ context.Context, history []models.Message, _ string) (*agent.TurnResult, error) {
	s.history = append(s.history, history)
	if s.err != nil {
		return nil, s.err
	}
	return &agent.TurnResult{Answer: s.answer, Iterations: 1}, nil
}

func TestChatService_SubmitTurn(t *testing.T) {
	tests := []struct {
		name        string
		runner      *stubRunner
		memory      *fakeMemoryStore
		req         models.ChatRequest
		wantReply   string
		wantEntries int
		wantUser    string
	}{
		{
			name:        "answer is cleaned and persisted",
			runner:      &stubRunner{answer: `Revenue rose {"source": "rag"} 12%.`},
			memory:      &fakeMemoryStore{},
			req:         models.ChatRequest{Message: "revenue?", UserID: "u-1"},
			wantReply:   "Revenue rose  12%.",
			wantEntries: 1,
			wantUser:    "u-1",
		},
		{
			name:        "missing user id defaults to anonymous",
			runner:      &stubRunner{answer: "hi"},
			memory:      &fakeMemoryStore{},
			req:         models.ChatRequest{Message: "hello"},
			wantReply:   "hi",
			wantEntries: 1,
			wantUser:    "anonymous",
		},
		{
			name:      "routing failure yields apology and is not persisted",
			runner:    &stubRunner{err: agent.ErrMaxIterations},
			memory:    &fakeMemoryStore{},
			req:       models.ChatRequest{Message: "loop"},
			wantReply: ApologyReply,
		},
		{
			name:      "answer that cleans to nothing yields apology",
			runner:    &stubRunner{answer: `{"tool_call": "rag_search"}`},
			memory:    &fakeMemoryStore{},
			req:       models.ChatRequest{Message: "x"},
			wantReply: ApologyReply,
		},
		{
			name:      "memory failure is logged not surfaced",
			runner:    &stubRunner{answer: "fine"},
			memory:    &fakeMemoryStore{appendErr: errors.New("disk full")},
			req:       models.ChatRequest{Message: "x"},
			wantReply: "fine",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatService(tt.runner, tt.memory, logger.NewNop(), metrics.NewRecorder())

			resp, err := svc.SubmitTurn(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReply, resp.Reply)
			assert.NotEmpty(t, resp.SessionID)
			require.Len(t, tt.memory.entries, tt.wantEntries)
			if tt.wantEntries > 0 {
				e := tt.memory.entries[0]
				assert.Equal(t, tt.wantUser, e.UserID)
				assert.Equal(t, tt.req.Message, e.Query)
				assert.Equal(t, tt.wantReply, e.Response)
				assert.False(t, e.Timestamp.IsZero())
			}
		})
	}
}

func TestChatService_EmptyMessage(t *testing.T) {
	svc := NewChatService(&stubRunner{}, &fakeMemoryStore{}, logger.NewNop(), nil)
	_, err := svc.SubmitTurn(context.Background(), models.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatService_CarriesSessionHistory(t *testing.T) {
	runner := &stubRunner{answer: "first answer"}
	svc := NewChatService(runner, &fakeMemoryStore{}, logger.NewNop(), nil)

	resp, err := svc.SubmitTurn(context.Background(), models.ChatRequest{Message: "first"})
	require.NoError(t, err)

	_, err = svc.SubmitTurn(context.Background(), models.ChatRequest{Message: "second", SessionID: resp.SessionID})
	require.NoError(t, err)

	require.Len(t, runner.history, 2)
	assert.Empty(t, runner.history[0])
	assert.Equal(t, []models.Message{
		models.NewUserMessage("first"),
		models.NewAssistantMessage("first answer"),
	}, runner.history[1])
}

// routingLLM picks rag_search for questions about uploaded files and answers
// from the tool output on the next step.
type routingLLM struct {
	mu    sync.Mutex
	picks []string
}

func (r *routingLLM) Invoke(_ context.Context, messages []models.Message, available []tools.Tool) (models.Message, error) {
	last := messages[len(messages)-1]
	if last.Role == models.RoleTool {
		for _, line := range strings.Split(last.Content, "\n") {
			if strings.HasPrefix(line, "1. ") {
				return models.NewAssistantMessage("Your file says: " + strings.TrimPrefix(line, "1. ")), nil
			}
		}
		return models.NewAssistantMessage("I found nothing."), nil
	}

	tool := tools.WebSearchToolName
	if strings.Contains(strings.ToLower(last.Content), "uploaded") {
		tool = tools.RAGToolName
	}
	for _, t := range available {
		if t.Name() == tool {
			r.mu.Lock()
			r.picks = append(r.picks, tool)
			r.mu.Unlock()
			return models.Message{
				Role:      models.RoleAssistant,
				ToolCalls: []models.ToolCall{{ID: "call-1", Name: tool, Arguments: map[string]any{"query": last.Content}}},
			}, nil
		}
	}
	return models.Message{}, errors.New("tool not bound")
}

func TestChatService_EndToEndUploadedFileQuestion(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	docs, err := storage.NewEmbeddedDocumentStore("")
	require.NoError(t, err)
	memory := storage.NewEmbeddedMemoryStore()
	embedder := &fakeEmbedder{}

	ingest := NewIngestService(docs, embedder, 500, 50, log)
	n, err := ingest.IngestDocument(ctx, "Q3 revenue rose 12%", "report.pdf", "report.pdf")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	retrieval := NewRetrievalService(embedder, []RetrievalStrategy{
		NewStructuredStrategy(docs, memory),
		NewSubstringStrategy(docs, memory, 20),
	}, 3, log, nil)

	const question = "What's in my uploaded file report.pdf?"
	result, err := retrieval.Search(ctx, question, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q3 revenue rose 12%"}, result.Documents)
	assert.False(t, result.Degraded)

	webCalled := false
	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webCalled = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer web.Close()

	registry := tools.NewRegistry(
		tools.NewRAGTool(retrieval, FormatContext, 3),
		tools.NewWebSearchTool("key", tools.WithEndpoint(web.URL)),
	)
	llm := &routingLLM{}
	controller := agent.NewController(llm, registry, log)
	chat := NewChatService(controller, memory, log, nil)

	resp, err := chat.SubmitTurn(ctx, models.ChatRequest{Message: question, UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{tools.RAGToolName}, llm.picks)
	assert.False(t, webCalled)
	assert.Contains(t, resp.Reply, "Q3 revenue rose 12%")

	recent, err := memory.RecentEntries(ctx, 20)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, question, recent[0].Query)
	assert.Equal(t, resp.Reply, recent[0].Response)
}
