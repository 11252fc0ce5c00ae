package services

import (
	"fmt"
	"strings"

	"github/itish2003/ragchat/models"
)

const noDocumentsMarker = "No relevant documents found."

// FormatContext renders a retrieval result as the labeled text block the
// language model reads. The memory section is left out when empty.
func FormatContext(result *models.RetrievalResult) string {
	if result == nil {
		result = models.EmptyRetrievalResult()
	}

	var sb strings.Builder
	if len(result.Documents) == 0 {
		sb.WriteString(noDocumentsMarker)
	} else {
		sb.WriteString("Relevant documents:")
		for i, doc := range result.Documents {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, doc)
		}
	}

	if len(result.Memory) > 0 {
		sb.WriteString("\n\nPrevious conversations:")
		for i, m := range result.Memory {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, m)
		}
	}
	return sb.String()
}
