package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/genai"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/tools"
)

// scriptedLLM returns replies in order and records the transcript of every call.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []models.Message
	// always, when set, is returned once replies run out.
	always *models.Message
	err    error
	seen   [][]models.Message
}

func (s *scriptedLLM) Invoke(_ context.Context, messages []models.Message, _ []tools.Tool) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, messages)
	if s.err != nil {
		return models.Message{}, s.err
	}
	if len(s.replies) > 0 {
		r := s.replies[0]
		s.replies = s.replies[1:]
		return r, nil
	}
	if s.always != nil {
		r := *s.always
		r.ToolCalls = append([]models.ToolCall(nil), s.always.ToolCalls...)
		return r, nil
	}
	return models.Message{}, errors.New("script exhausted")
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// funcTool is a tool backed by a function, with an optional delay.
type funcTool struct {
	name  string
	delay time.Duration
	fn    func(args map[string]any) (string, error)

	mu       sync.Mutex
	finished []time.Time
}

func (f *funcTool) Name() string { return f.name }

func (f *funcTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: f.name}
}

func (f *funcTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	defer func() {
		f.mu.Lock()
		f.finished = append(f.finished, time.Now())
		f.mu.Unlock()
	}()
	return f.fn(args)
}

func (f *funcTool) CallAsync(context.Context, map[string]any) (<-chan tools.AsyncResult, error) {
	return nil, tools.ErrAsyncUnsupported
}

func toolCallMsg(calls ...models.ToolCall) models.Message {
	return models.Message{Role: models.RoleAssistant, ToolCalls: calls}
}
