package rag

import (
	"fmt"
	"strings"

	"safe-assistant/internal/kb"
)

const promptTemplate = `Answer the question based on the context provided.

CONTEXT:
%s

QUESTION:
%s
`

// Composer merges retrieved chunks with the user question into a single
// instruction text for the model.
type Composer struct {
	// maxContextChars caps the rendered context section. Retrieved chunks
	// are ranked most similar first; chunks that do not fit the budget are
	// dropped from the tail. 0 means no cap.
	maxContextChars int
}

// NewComposer returns a Composer with the given context budget.
func NewComposer(maxContextChars int) *Composer {
	return &Composer{maxContextChars: maxContextChars}
}

// Compose renders the prompt. With no retrieved chunks the query is returned
// unchanged, so a bare question reaches the model without a context section.
func (c *Composer) Compose(query string, results []kb.Result) string {
	context := c.formatContext(results)
	if context == "" {
		return query
	}
	return fmt.Sprintf(promptTemplate, context, query)
}

// formatContext renders each chunk as a labeled document block and joins the
// blocks with blank lines, dropping lowest-ranked blocks past the budget.
func (c *Composer) formatContext(results []kb.Result) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, r := range results {
		source := r.Source
		if source == "" {
			source = "Unknown source"
		}
		block := fmt.Sprintf("[Document: %s]\n%s\n", source, r.Text)

		next := sb.Len() + len(block)
		if sb.Len() > 0 {
			next++ // separator
		}
		if c.maxContextChars > 0 && next > c.maxContextChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block)
	}
	return sb.String()
}
