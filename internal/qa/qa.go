// Package qa answers client questions from retrieved knowledge.
package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/llm"
	"github.com/hyperjump/lexsy/internal/models"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 5

// NoInformationAnswer is returned when the client has no knowledge at all.
const NoInformationAnswer = "I don't have any information about this client yet. Upload documents or ingest emails first."

const systemPrompt = "You are a legal assistant answering questions about a single client. " +
	"Answer only from the provided context and mention the source documents or emails when relevant."

const userPromptTemplate = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
	llm.ContextStart + "%s" + llm.ContextEnd + " %s\n\nAnswer:"

// Searcher is the read side of the client knowledge store.
type Searcher interface {
	Search(ctx context.Context, clientID int64, query string, k int) ([]models.Hit, error)
}

// Pipeline retrieves passages for a question and asks a completer to
// answer from them.
type Pipeline struct {
	searcher  Searcher
	completer llm.Completer
	topK      int
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets the number of passages retrieved per question.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a question answering pipeline.
func NewPipeline(searcher Searcher, completer llm.Completer, opts ...Option) *Pipeline {
	p := &Pipeline{searcher: searcher, completer: completer, topK: DefaultTopK, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer answers question using only the client's knowledge. Sources list
// the retrieved records in rank order.
func (p *Pipeline) Answer(ctx context.Context, clientID int64, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.NewError(models.KindInvalidArgument, "question must not be empty")
	}
	hits, err := p.searcher.Search(ctx, clientID, question, p.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(hits) == 0 {
		p.logger.Debug("no knowledge for client", zap.Int64("client_id", clientID))
		return &models.Answer{Answer: NoInformationAnswer, Sources: []models.Source{}}, nil
	}

	sources := make([]models.Source, len(hits))
	for i, h := range hits {
		sources[i] = h.Metadata.Source()
	}
	text, err := p.completer.Complete(ctx, systemPrompt, BuildPrompt(question, hits))
	if err != nil {
		p.logger.Warn("answer generation failed",
			zap.Int64("client_id", clientID),
			zap.String("completer", p.completer.Name()),
			zap.Error(err))
		return nil, models.Wrap(models.KindAnswerProvider, "generate answer", err)
	}
	p.logger.Info("question answered",
		zap.Int64("client_id", clientID),
		zap.Int("sources", len(sources)))
	return &models.Answer{Answer: text, Sources: sources}, nil
}

// BuildPrompt renders the user prompt from question and ranked hits.
func BuildPrompt(question string, hits []models.Hit) string {
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = strings.TrimSpace(h.Text)
	}
	return fmt.Sprintf(userPromptTemplate, strings.Join(passages, llm.ContextSeparator), question)
}
