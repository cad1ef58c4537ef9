package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// renderCitationsMarkdown formats a citation list as a markdown document
// with one numbered section per citation.
func renderCitationsMarkdown(question string, citations []domain.Citation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sources: %s\n\n", question)

	if len(citations) == 0 {
		b.WriteString("_No matching sources found._\n")
		return b.String()
	}

	for _, c := range citations {
		fmt.Fprintf(&b, "## [%d] %s\n\n", c.ID, c.DigestTitle)
		if !c.PublishedAt.IsZero() {
			fmt.Fprintf(&b, "Published: %s\n", c.PublishedAt.Format("2006-01-02"))
		}
		if c.URL != "" {
			fmt.Fprintf(&b, "Source: %s\n", c.URL)
		}
		fmt.Fprintf(&b, "Relevance: %.2f\n\n", c.RelevanceScore)
		b.WriteString("> ")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(c.ChunkText), "\n", "\n> "))
		b.WriteString("\n\n")
	}
	return b.String()
}

// citationExport is the JSON export envelope.
type citationExport struct {
	Question    string            `json:"question"`
	ExportedAt  time.Time         `json:"exported_at"`
	Citations   []domain.Citation `json:"citations"`
	TotalChunks int               `json:"total_chunks"`
}

// renderCitationsJSON formats a citation list as an indented JSON
// document.
func renderCitationsJSON(question string, citations []domain.Citation) (string, error) {
	if citations == nil {
		citations = []domain.Citation{}
	}
	payload := citationExport{
		Question:    question,
		ExportedAt:  time.Now().UTC(),
		Citations:   citations,
		TotalChunks: len(citations),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
