package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/ragchat/models"
)

func TestRegistry(t *testing.T) {
	rag := NewRAGTool(&stubRetriever{result: &models.RetrievalResult{Documents: []string{"d"}}}, joinDocs, 3)
	web := NewWebSearchTool("k")
	r := NewRegistry(web, rag)

	names := []string{}
	for _, tool := range r.List() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"rag_search", "tavily_search"}, names)

	out, err := r.Call(context.Background(), "rag_search", map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, "d", out)

	_, err = r.Call(context.Background(), "delete_everything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}
