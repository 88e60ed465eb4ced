// Package llm provides answer providers that complete a prompt into text.
package llm

import (
	"context"
	"time"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

// Completer turns a system prompt and a user prompt into an answer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

type guardedCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every Complete call by timeout. Deadline failures
// become models.ErrTimeout and unclassified errors models.ErrProvider.
func WithTimeout(c Completer, timeout time.Duration) Completer {
	return &guardedCompleter{next: c, timeout: timeout}
}

func (g *guardedCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return capability.Call(ctx, g.timeout, "answer", func(ctx context.Context) (string, error) {
		out, err := g.next.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			return "", err
		}
		if out == "" {
			return "", models.Errorf(models.KindProvider, "%s returned an empty answer", g.next.Name())
		}
		return out, nil
	})
}

func (g *guardedCompleter) Name() string {
	return g.next.Name()
}
