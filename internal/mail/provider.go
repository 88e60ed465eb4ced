// Package mail fetches email threads from a mail provider.
package mail

import (
	"context"

	"github.com/hyperjump/lexsy/internal/models"
)

// Provider is an external mailbox.
type Provider interface {
	// IsAuthenticated reports whether the provider has credentials to use.
	IsAuthenticated(ctx context.Context) bool
	// FetchThread returns the messages of a thread in order.
	FetchThread(ctx context.Context, threadID string) ([]models.EmailMessage, error)
}

// FetchFunc fetches the ordered messages of a thread.
type FetchFunc func(ctx context.Context, threadID string) ([]models.EmailMessage, error)
