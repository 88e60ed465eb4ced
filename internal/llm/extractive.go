package llm

import (
	"context"
	"strings"
)

// ContextSeparator separates retrieved passages inside a prompt.
const ContextSeparator = "\n\n"

// Context markers the extractive completer looks for in the user prompt.
const (
	ContextStart = "Context:\n"
	ContextEnd   = "\n\nQuestion:"
)

// ExtractiveCompleter answers offline by quoting the first passage of the
// prompt's context. It lets the assistant run end to end without an
// external model.
type ExtractiveCompleter struct{}

// NewExtractiveCompleter returns an ExtractiveCompleter.
func NewExtractiveCompleter() *ExtractiveCompleter {
	return &ExtractiveCompleter{}
}

// Complete returns the best matching passage from the prompt context.
func (c *ExtractiveCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	passage := firstPassage(userPrompt)
	if passage == "" {
		return "I don't know.", nil
	}
	return "Based on the client's records: " + passage, nil
}

// Name identifies the completer in logs.
func (c *ExtractiveCompleter) Name() string {
	return "extractive"
}

func firstPassage(prompt string) string {
	start := strings.Index(prompt, ContextStart)
	if start < 0 {
		return ""
	}
	body := prompt[start+len(ContextStart):]
	if end := strings.Index(body, ContextEnd); end >= 0 {
		body = body[:end]
	}
	first, _, _ := strings.Cut(body, ContextSeparator)
	return strings.TrimSpace(first)
}
