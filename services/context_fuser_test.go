package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github/itish2003/ragchat/models"
)

func TestFormatContext(t *testing.T) {
	tests := []struct {
		name   string
		result *models.RetrievalResult
		want   string
	}{
		{
			name:   "nothing found",
			result: models.EmptyRetrievalResult(),
			want:   "No relevant documents found.",
		},
		{
			name:   "nil result",
			result: nil,
			want:   "No relevant documents found.",
		},
		{
			name: "documents only",
			result: &models.RetrievalResult{
				Documents: []string{"Q3 revenue rose 12%", "Headcount flat"},
			},
			want: "Relevant documents:\n1. Q3 revenue rose 12%\n2. Headcount flat",
		},
		{
			name: "memory without documents",
			result: &models.RetrievalResult{
				Memory: []string{"User: hi\nBot: hello"},
			},
			want: "No relevant documents found.\n\nPrevious conversations:\n1. User: hi\nBot: hello",
		},
		{
			name: "both sections",
			result: &models.RetrievalResult{
				Documents: []string{"doc"},
				Memory:    []string{"User: a\nBot: b", "User: c\nBot: d"},
			},
			want: "Relevant documents:\n1. doc\n\nPrevious conversations:\n1. User: a\nBot: b\n2. User: c\nBot: d",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatContext(tt.result))
		})
	}
}
