// Package tools holds the capabilities the language model can call during a turn.
package tools

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

var (
	// ErrAsyncUnsupported is returned by tools without an asynchronous call path.
	ErrAsyncUnsupported = errors.New("tool does not support async execution")
	// ErrUnknownTool is returned when the model asks for a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// Tool is a named capability taking a structured argument map and returning text.
type Tool interface {
	Name() string
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (string, error)
	// CallAsync starts the call and delivers the result on the returned channel.
	CallAsync(ctx context.Context, args map[string]any) (<-chan AsyncResult, error)
}

// AsyncResult is delivered exactly once on a CallAsync channel.
type AsyncResult struct {
	Output string
	Err    error
}

// QueryInput is the single-field input shared by the retrieval and web search tools.
type QueryInput struct {
	Query string `json:"query"`
}

var errQueryNotString = errors.New("'query' argument must be a string")

// ParseQueryInput extracts and validates the query argument.
func ParseQueryInput(args map[string]any) (QueryInput, error) {
	q, ok := args["query"].(string)
	if !ok || q == "" {
		return QueryInput{}, errQueryNotString
	}
	return QueryInput{Query: q}, nil
}

func queryDeclaration(name, description, queryDescription string) *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: queryDescription,
				},
			},
			Required: []string{"query"},
		},
	}
}
