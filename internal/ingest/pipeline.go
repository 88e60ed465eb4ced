// Package ingest normalizes documents and emails into client knowledge.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/extract"
	"github.com/hyperjump/lexsy/internal/mail"
	"github.com/hyperjump/lexsy/internal/models"
)

// Store is the write side of the client knowledge store.
type Store interface {
	Insert(ctx context.Context, clientID int64, text string, meta models.Metadata) (int64, error)
}

// Pipeline ingests documents and emails for a client.
type Pipeline struct {
	store     Store
	extractor *extract.Extractor
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline writing to store. extractor may be nil,
// in which case a default extractor is used.
func NewPipeline(store Store, extractor *extract.Extractor, opts ...PipelineOption) *Pipeline {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	p := &Pipeline{store: store, extractor: extractor, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestDocument extracts the text of raw according to filename's
// extension and stores it as one document record. Extraction errors are
// returned unchanged and nothing is stored.
func (p *Pipeline) IngestDocument(ctx context.Context, clientID int64, filename string, raw []byte) (*models.UploadResult, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, models.NewError(models.KindInvalidArgument, "filename is required")
	}
	text, err := p.extractor.ExtractBytes(raw, filepath.Ext(name))
	if err != nil {
		p.logger.Debug("document extraction failed",
			zap.Int64("client_id", clientID), zap.String("filename", name), zap.Error(err))
		return nil, err
	}
	id, err := p.store.Insert(ctx, clientID, text, models.DocumentSource(name))
	if err != nil {
		return nil, err
	}
	p.logger.Info("document ingested",
		zap.Int64("client_id", clientID), zap.String("filename", name), zap.Int64("record_id", id))
	return &models.UploadResult{Filename: name, Status: models.UploadStatusEmbedded, RecordID: id}, nil
}

// IngestFile reads a regular file from disk and ingests it as a document.
func (p *Pipeline) IngestFile(ctx context.Context, clientID int64, path string) (*models.UploadResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !extract.Supported(filepath.Ext(absPath)) {
		return nil, models.Errorf(models.KindUnsupportedFormat, "unsupported file format %q", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, models.Errorf(models.KindInvalidArgument, "not a regular file: %s", absPath)
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.IngestDocument(ctx, clientID, filepath.Base(absPath), raw)
}

// IngestDirectory walks dir and ingests every supported file. It keeps
// going past files that fail and returns one result per attempted file.
func (p *Pipeline) IngestDirectory(ctx context.Context, clientID int64, dir string) ([]FileOutcome, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var outcomes []FileOutcome
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extract.Supported(filepath.Ext(path)) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res, ingestErr := p.IngestFile(ctx, clientID, path)
		outcomes = append(outcomes, FileOutcome{Path: path, Result: res, Err: ingestErr})
		return nil
	})
	return outcomes, err
}

// FileOutcome is the result of ingesting one file from a directory.
type FileOutcome struct {
	Path   string
	Result *models.UploadResult
	Err    error
}

// IngestEmailBatch stores each email body with its metadata. Failures are
// isolated per email and reported in the result; they never abort the batch.
func (p *Pipeline) IngestEmailBatch(ctx context.Context, clientID int64, emails []models.EmailMessage) *models.BatchResult {
	res := &models.BatchResult{
		BatchID:  uuid.NewString(),
		Total:    len(emails),
		Failures: []models.ItemFailure{},
	}
	for i, email := range emails {
		if err := p.ingestEmail(ctx, clientID, email); err != nil {
			res.Failures = append(res.Failures, models.ItemFailure{
				Index:   i,
				Subject: email.Subject,
				Kind:    models.KindOf(err),
				Reason:  err.Error(),
			})
			p.logger.Warn("email ingestion failed",
				zap.Int64("client_id", clientID),
				zap.String("batch_id", res.BatchID),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		res.Processed++
	}
	p.logger.Info("email batch ingested",
		zap.Int64("client_id", clientID),
		zap.String("batch_id", res.BatchID),
		zap.Int("processed", res.Processed),
		zap.Int("total", res.Total))
	return res
}

func (p *Pipeline) ingestEmail(ctx context.Context, clientID int64, email models.EmailMessage) error {
	if strings.TrimSpace(email.Body) == "" {
		return models.NewError(models.KindEmptyContent, "email body is missing")
	}
	_, err := p.store.Insert(ctx, clientID, email.Body, email.Metadata())
	return err
}

// IngestSampleEmails ingests the fixed demonstration batch.
func (p *Pipeline) IngestSampleEmails(ctx context.Context, clientID int64) *models.BatchResult {
	return p.IngestEmailBatch(ctx, clientID, SampleEmails())
}

// IngestMailThread fetches a thread and ingests its messages. When fetch
// fails the demonstration thread is ingested instead and the result is
// flagged with UsedFallback and the demonstration thread id.
func (p *Pipeline) IngestMailThread(ctx context.Context, clientID int64, threadID string, fetch mail.FetchFunc) *models.ThreadResult {
	if fetch == nil {
		return p.ingestFallback(ctx, clientID, "no mail provider configured")
	}
	messages, err := fetch(ctx, threadID)
	if err != nil {
		p.logger.Warn("mail thread fetch failed, using demonstration thread",
			zap.Int64("client_id", clientID),
			zap.String("thread_id", threadID),
			zap.Error(err))
		return p.ingestFallback(ctx, clientID, err.Error())
	}
	for i := range messages {
		if messages[i].ThreadID == "" {
			messages[i].ThreadID = threadID
		}
	}
	batch := p.IngestEmailBatch(ctx, clientID, messages)
	return &models.ThreadResult{
		Processed: batch.Processed,
		Total:     batch.Total,
		ThreadID:  threadID,
		Failures:  batch.Failures,
	}
}

// IngestProviderThread ingests a thread from provider, falling back to the
// demonstration thread when the provider is missing or not authenticated.
func (p *Pipeline) IngestProviderThread(ctx context.Context, clientID int64, threadID string, provider mail.Provider) *models.ThreadResult {
	if provider == nil {
		return p.ingestFallback(ctx, clientID, "no mail provider configured")
	}
	if !provider.IsAuthenticated(ctx) {
		return p.ingestFallback(ctx, clientID, "mail provider is not authenticated")
	}
	return p.IngestMailThread(ctx, clientID, threadID, provider.FetchThread)
}

// IngestDemoThread ingests the demonstration thread directly.
func (p *Pipeline) IngestDemoThread(ctx context.Context, clientID int64) *models.ThreadResult {
	batch := p.IngestEmailBatch(ctx, clientID, DemoThread())
	return &models.ThreadResult{
		Processed: batch.Processed,
		Total:     batch.Total,
		ThreadID:  DemoThreadID,
		Failures:  batch.Failures,
	}
}

func (p *Pipeline) ingestFallback(ctx context.Context, clientID int64, reason string) *models.ThreadResult {
	res := p.IngestDemoThread(ctx, clientID)
	res.UsedFallback = true
	res.FallbackReason = reason
	return res
}
