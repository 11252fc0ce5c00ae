// Package agent runs a conversational turn: it alternates language model
// reasoning with tool execution until the model answers in plain text.
package agent

import (
	"context"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/tools"
)

// LLM is one reasoning step over the transcript with the given tools bound.
type LLM interface {
	Invoke(ctx context.Context, messages []models.Message, available []tools.Tool) (models.Message, error)
}
