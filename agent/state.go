package agent

import (
	"slices"

	"github/itish2003/ragchat/models"
)

// State is a node of the routing state machine.
type State int

const (
	StateReasoning State = iota
	StateToolExecution
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReasoning:
		return "reasoning"
	case StateToolExecution:
		return "tool_execution"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// RoutingState is the transcript threaded through a turn. Messages are only
// ever appended.
type RoutingState struct {
	messages []models.Message
}

// NewRoutingState seeds a turn: system instructions, carried-over history,
// then the new user message.
func NewRoutingState(systemPrompt string, history []models.Message, userText string) *RoutingState {
	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.NewSystemMessage(systemPrompt))
	msgs = append(msgs, history...)
	msgs = append(msgs, models.NewUserMessage(userText))
	return &RoutingState{messages: msgs}
}

func (s *RoutingState) Append(msgs ...models.Message) {
	s.messages = append(s.messages, msgs...)
}

// Messages returns a copy of the transcript.
func (s *RoutingState) Messages() []models.Message {
	return slices.Clone(s.messages)
}

func (s *RoutingState) Len() int {
	return len(s.messages)
}

// Last returns the most recent message.
func (s *RoutingState) Last() models.Message {
	return s.messages[len(s.messages)-1]
}
