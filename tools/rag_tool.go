package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github/itish2003/ragchat/models"
)

const RAGToolName = "rag_search"

// Retriever is the hybrid search adapter the retrieval tool runs.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (*models.RetrievalResult, error)
}

// ContextFormatter renders a retrieval result for the model.
type ContextFormatter func(*models.RetrievalResult) string

// RAGTool searches uploaded documents and chat history.
type RAGTool struct {
	retriever Retriever
	format    ContextFormatter
	topK      int
}

func NewRAGTool(retriever Retriever, format ContextFormatter, topK int) *RAGTool {
	if topK <= 0 {
		topK = 3
	}
	return &RAGTool{retriever: retriever, format: format, topK: topK}
}

func (t *RAGTool) Name() string { return RAGToolName }

func (t *RAGTool) Declaration() *genai.FunctionDeclaration {
	return queryDeclaration(
		RAGToolName,
		"Searches uploaded documents and chat history to retrieve relevant context.",
		"The topic or question to look up in the user's documents and past conversations.",
	)
}

// Call runs search and format synchronously. A failed search is reported as
// result text so the model can still answer without the context.
func (t *RAGTool) Call(ctx context.Context, args map[string]any) (string, error) {
	in, err := ParseQueryInput(args)
	if err != nil {
		return "", err
	}
	result, err := t.retriever.Search(ctx, in.Query, t.topK)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err), nil
	}
	return t.format(result), nil
}

func (t *RAGTool) CallAsync(context.Context, map[string]any) (<-chan AsyncResult, error) {
	return nil, fmt.Errorf("%s: %w", RAGToolName, ErrAsyncUnsupported)
}
