package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	WebSearchToolName = "tavily_search"
	defaultTavilyURL  = "https://api.tavily.com/search"
)

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

// WebSearchTool queries the Tavily search API for current information.
type WebSearchTool struct {
	httpClient *http.Client
	apiKey     string
	url        string
	maxResults int
}

type WebSearchOption func(*WebSearchTool)

func WithHTTPClient(c *http.Client) WebSearchOption {
	return func(t *WebSearchTool) { t.httpClient = c }
}

func WithEndpoint(url string) WebSearchOption {
	return func(t *WebSearchTool) {
		if url != "" {
			t.url = url
		}
	}
}

func WithMaxResults(n int) WebSearchOption {
	return func(t *WebSearchTool) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

func NewWebSearchTool(apiKey string, opts ...WebSearchOption) *WebSearchTool {
	t := &WebSearchTool{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		url:        defaultTavilyURL,
		maxResults: 3,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WebSearchTool) Name() string { return WebSearchToolName }

func (t *WebSearchTool) Declaration() *genai.FunctionDeclaration {
	return queryDeclaration(
		WebSearchToolName,
		"Searches the web for real-time information, news and current events.",
		"A concise web search query.",
	)
}

func (t *WebSearchTool) Call(ctx context.Context, args map[string]any) (string, error) {
	in, err := ParseQueryInput(args)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(tavilyRequest{
		Query:       in.Query,
		MaxResults:  t.maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("web search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	return formatSearchResults(in.Query, out), nil
}

func (t *WebSearchTool) CallAsync(ctx context.Context, args map[string]any) (<-chan AsyncResult, error) {
	ch := make(chan AsyncResult, 1)
	go func() {
		out, err := t.Call(ctx, args)
		ch <- AsyncResult{Output: out, Err: err}
		close(ch)
	}()
	return ch, nil
}

func formatSearchResults(query string, resp tavilyResponse) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No web results found for %q.", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web results for %q:", query)
	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "\n%d. %s (%s)\n%s", i+1, r.Title, r.URL, r.Content)
	}
	return sb.String()
}
