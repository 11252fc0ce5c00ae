package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/tools"
)

func TestToGeminiContents(t *testing.T) {
	call1 := models.ToolCall{ID: "a", Name: "rag_search", Arguments: map[string]any{"query": "q"}}
	call2 := models.ToolCall{ID: "b", Name: "tavily_search", Arguments: map[string]any{"query": "q"}}
	msgs := []models.Message{
		models.NewSystemMessage("be helpful"),
		models.NewUserMessage("hello"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{call1, call2}},
		models.NewToolResultMessage(call1, "docs"),
		models.NewToolResultMessage(call2, "web"),
		models.NewAssistantMessage("answer"),
	}

	contents, system := toGeminiContents(msgs)
	require.NotNil(t, system)
	assert.Equal(t, "be helpful", system.Parts[0].Text)

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "hello", contents[0].Parts[0].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "a", contents[1].Parts[0].FunctionCall.ID)
	assert.Equal(t, "tavily_search", contents[1].Parts[1].FunctionCall.Name)

	assert.Equal(t, "user", contents[2].Role)
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "a", contents[2].Parts[0].FunctionResponse.ID)
	assert.Equal(t, map[string]any{"result": "docs"}, contents[2].Parts[0].FunctionResponse.Response)
	assert.Equal(t, "web", contents[2].Parts[1].FunctionResponse.Response["result"])

	assert.Equal(t, "model", contents[3].Role)
	assert.Equal(t, "answer", contents[3].Parts[0].Text)
}

func TestFromGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{
			{Text: "Let me check. "},
			{FunctionCall: &genai.FunctionCall{ID: "x", Name: "rag_search", Args: map[string]any{"query": "report"}}},
		}},
	}}}

	msg, err := fromGeminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "Let me check. ", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "report", msg.ToolCalls[0].Arguments["query"])

	_, err = fromGeminiResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestToGeminiTools(t *testing.T) {
	assert.Nil(t, toGeminiTools(nil))

	got := toGeminiTools([]tools.Tool{echoTool("rag_search"), echoTool("tavily_search")})
	require.Len(t, got, 1)
	require.Len(t, got[0].FunctionDeclarations, 2)
	assert.Equal(t, "rag_search", got[0].FunctionDeclarations[0].Name)
}
