package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/tools"
)

// GeminiLLM adapts the Gemini generate-content API to the LLM port.
type GeminiLLM struct {
	client *genai.Client
	model  string
}

func NewGeminiLLM(client *genai.Client, model string) *GeminiLLM {
	return &GeminiLLM{client: client, model: model}
}

// NewGeminiClient creates the shared Gemini client used for generation and embeddings.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func (g *GeminiLLM) Invoke(ctx context.Context, messages []models.Message, available []tools.Tool) (models.Message, error) {
	contents, system := toGeminiContents(messages)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Tools:             toGeminiTools(available),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return models.Message{}, fmt.Errorf("gemini api call failed: %w", err)
	}
	return fromGeminiResponse(resp)
}

// toGeminiContents splits out system messages as the system instruction and
// groups consecutive tool results into a single user turn.
func toGeminiContents(messages []models.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemParts []*genai.Part

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})

		case models.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case models.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: call.Arguments,
					},
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		case models.RoleTool:
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: map[string]any{"result": msg.Content},
				},
			}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Role: "user", Parts: systemParts}
	}
	return contents, system
}

func isFunctionResponseTurn(c *genai.Content) bool {
	return c.Role == "user" && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func toGeminiTools(available []tools.Tool) []*genai.Tool {
	if len(available) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(available))
	for _, t := range available {
		decls = append(decls, t.Declaration())
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (models.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.Message{}, errors.New("empty response from Gemini")
	}

	msg := models.Message{Role: models.RoleAssistant}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil {
			msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Arguments: p.FunctionCall.Args,
			})
		}
	}
	msg.Content = text.String()
	return msg, nil
}
