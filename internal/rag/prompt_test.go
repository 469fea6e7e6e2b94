package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-assistant/internal/kb"
)

func TestComposeEmptyResultsReturnsQueryUnchanged(t *testing.T) {
	c := NewComposer(0)

	query := "How do I treat a burn?"
	assert.Equal(t, query, c.Compose(query, nil))
	assert.Equal(t, query, c.Compose(query, []kb.Result{}))
}

func TestComposeRendersLabeledBlocks(t *testing.T) {
	c := NewComposer(0)

	results := []kb.Result{
		{Source: "burns.txt", Text: "Cool the burn under running water.", Distance: 0.1},
		{Source: "cpr.txt", Text: "Check for responsiveness first.", Distance: 0.3},
	}
	got := c.Compose("How do I treat a burn?", results)

	want := `Answer the question based on the context provided.

CONTEXT:
[Document: burns.txt]
Cool the burn under running water.

[Document: cpr.txt]
Check for responsiveness first.


QUESTION:
How do I treat a burn?
`
	assert.Equal(t, want, got)
}

func TestComposeUnknownSourceLabel(t *testing.T) {
	c := NewComposer(0)

	got := c.Compose("q", []kb.Result{{Text: "orphan chunk"}})
	assert.Contains(t, got, "[Document: Unknown source]\norphan chunk")
}

func TestComposeContextBudgetDropsTail(t *testing.T) {
	first := kb.Result{Source: "a.txt", Text: strings.Repeat("x", 50)}
	second := kb.Result{Source: "b.txt", Text: strings.Repeat("y", 50)}

	// Budget fits only the first block.
	c := NewComposer(80)
	got := c.Compose("q", []kb.Result{first, second})
	assert.Contains(t, got, "[Document: a.txt]")
	assert.NotContains(t, got, "[Document: b.txt]")

	// Budget fits nothing: no context section at all.
	c = NewComposer(10)
	assert.Equal(t, "q", c.Compose("q", []kb.Result{first, second}))

	// Zero budget means unlimited.
	c = NewComposer(0)
	got = c.Compose("q", []kb.Result{first, second})
	require.Contains(t, got, "[Document: a.txt]")
	require.Contains(t, got, "[Document: b.txt]")
}
