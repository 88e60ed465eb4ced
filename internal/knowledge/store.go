// Package knowledge is the per-client knowledge store: it embeds text,
// keeps it in client partitions and answers similarity searches.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/embedding"
	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/vector"
)

// Store inserts and searches client knowledge.
type Store struct {
	repo     Repository
	embedder embedding.Embedder
	logger   *zap.Logger
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithLogger sets a logger for insert and search events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store over repo using embedder for texts and queries.
func NewStore(repo Repository, embedder embedding.Embedder, opts ...StoreOption) *Store {
	s := &Store{repo: repo, embedder: embedder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert embeds text and appends it to the client's partition, creating the
// partition on first use. It returns the partition-local record id.
func (s *Store) Insert(ctx context.Context, clientID int64, text string, meta models.Metadata) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, models.ErrEmptyContent
	}
	if err := meta.Validate(); err != nil {
		return 0, err
	}

	// The provider call happens before any partition lock is taken.
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed record: %w", err)
	}

	rec := &models.KnowledgeRecord{
		ClientID:  clientID,
		Text:      text,
		Embedding: emb,
		Metadata:  meta,
	}
	id, err := s.repo.Append(ctx, rec)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("knowledge record stored",
		zap.Int64("client_id", clientID),
		zap.Int64("record_id", id),
		zap.String("source_type", string(meta.SourceType)),
		zap.Int("chars", len(text)),
	)
	return id, nil
}

// Search returns up to k records of the client ranked by cosine similarity
// to queryText, best first, ties in insertion order. A client without
// records yields an empty result and no embedding call.
func (s *Store) Search(ctx context.Context, clientID int64, queryText string, k int) ([]models.Hit, error) {
	if k <= 0 {
		return nil, models.Errorf(models.KindInvalidArgument, "k must be positive, got %d", k)
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, models.Errorf(models.KindInvalidArgument, "query must not be empty")
	}

	dims, err := s.repo.Dimensions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("read partition: %w", err)
	}
	if dims == 0 {
		return []models.Hit{}, nil
	}
	records, err := s.repo.List(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return []models.Hit{}, nil
	}

	query, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(query) != dims {
		return nil, dimensionMismatch(clientID, len(query), dims)
	}

	candidates := make([]vector.Candidate, len(records))
	for i, r := range records {
		candidates[i] = vector.Candidate{Seq: r.ID, Vector: r.Embedding}
	}
	ranked := vector.TopK(query, candidates, k)
	hits := make([]models.Hit, len(ranked))
	for i, sc := range ranked {
		r := records[sc.Index]
		hits[i] = models.Hit{RecordID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: sc.Score}
	}
	s.logger.Debug("knowledge search",
		zap.Int64("client_id", clientID),
		zap.Int("candidates", len(records)),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// List returns the client's records in insertion order.
func (s *Store) List(ctx context.Context, clientID int64) ([]*models.KnowledgeRecord, error) {
	return s.repo.List(ctx, clientID)
}

// Count returns the number of records stored for the client.
func (s *Store) Count(ctx context.Context, clientID int64) (int, error) {
	return s.repo.Count(ctx, clientID)
}

// Close releases the underlying repository.
func (s *Store) Close() error {
	return s.repo.Close()
}
