package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github/itish2003/ragchat/agent"
	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/storage"
)

// ApologyReply is what users see when a turn cannot be completed.
const ApologyReply = "I apologize, but I couldn't process your request properly."

const (
	anonymousUser = "anonymous"
	// maxSessionMessages bounds the history carried into a turn.
	maxSessionMessages = 20
)

var ErrEmptyMessage = errors.New("message must not be empty")

// TurnRunner executes one routed turn.
type TurnRunner interface {
	Run(ctx context.Context, history []models.Message, userText string) (*agent.TurnResult, error)
}

// ChatService is the inbound submit-turn surface used by HTTP and the terminal chat.
type ChatService interface {
	SubmitTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

type chatServiceImpl struct {
	runner   TurnRunner
	memory   storage.MemoryStore
	log      logger.ILogger
	metrics  *metrics.Recorder
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string][]models.Message
}

func NewChatService(runner TurnRunner, memory storage.MemoryStore, log logger.ILogger, rec *metrics.Recorder) ChatService {
	return &chatServiceImpl{
		runner:   runner,
		memory:   memory,
		log:      log,
		metrics:  rec,
		now:      time.Now,
		sessions: make(map[string][]models.Message),
	}
}

// SubmitTurn runs the turn, cleans the answer and appends the exchange to chat
// memory. Failed turns yield the apology text and are not persisted.
func (s *chatServiceImpl) SubmitTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	history := s.history(sessionID)

	s.log.Info("CHAT", "Turn started", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    req.UserID,
	})

	result, err := s.runner.Run(ctx, history, req.Message)
	if err != nil {
		s.log.Error("CHAT", "Turn failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		s.metrics.RecordTurn(metrics.OutcomeFailed)
		return &models.ChatResponse{Reply: ApologyReply, SessionID: sessionID}, nil
	}

	reply := agent.CleanResponse(result.Answer)
	if strings.TrimSpace(reply) == "" {
		s.log.Warn("CHAT", "Model returned an empty answer", map[string]interface{}{"session_id": sessionID})
		s.metrics.RecordTurn(metrics.OutcomeFailed)
		return &models.ChatResponse{Reply: ApologyReply, SessionID: sessionID}, nil
	}

	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}
	entry := models.ChatMemoryEntry{
		UserID:    userID,
		Timestamp: s.now().UTC(),
		Query:     req.Message,
		Response:  reply,
	}
	if err := s.memory.AppendEntry(ctx, entry); err != nil {
		s.log.Error("CHAT", "Failed to persist exchange", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	s.remember(sessionID, models.NewUserMessage(req.Message), models.NewAssistantMessage(reply))
	s.metrics.RecordTurn(metrics.OutcomeAnswered)
	s.log.Info("CHAT", "Turn answered", map[string]interface{}{
		"session_id": sessionID,
		"iterations": result.Iterations,
	})
	return &models.ChatResponse{Reply: reply, SessionID: sessionID}, nil
}

func (s *chatServiceImpl) history(sessionID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.sessions[sessionID]...)
}

func (s *chatServiceImpl) remember(sessionID string, msgs ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.sessions[sessionID], msgs...)
	if len(h) > maxSessionMessages {
		h = h[len(h)-maxSessionMessages:]
	}
	s.sessions[sessionID] = h
}
