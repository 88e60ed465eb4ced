// Package models defines the knowledge records, ingestion inputs and
// pipeline results shared across the assistant.
package models

import (
	"strings"
	"time"
)

// SourceType tags where a record's text came from.
type SourceType string

const (
	SourceDocument SourceType = "document"
	SourceEmail    SourceType = "email"
)

// Placeholders used in source attribution when metadata is incomplete.
const (
	UnknownSubject  = "(no subject)"
	UnknownFilename = "(unnamed document)"
)

// DocumentMetadata describes a record extracted from an uploaded file.
type DocumentMetadata struct {
	Filename string `json:"filename"`
}

// EmailMetadata describes a record ingested from an email message.
type EmailMetadata struct {
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	DateSent  string `json:"date_sent"`
	ThreadID  string `json:"thread_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// Metadata is a tagged variant: exactly one of Document or Email is set,
// matching SourceType.
type Metadata struct {
	SourceType SourceType        `json:"source_type"`
	Document   *DocumentMetadata `json:"document,omitempty"`
	Email      *EmailMetadata    `json:"email,omitempty"`
}

// DocumentSource returns document metadata for filename.
func DocumentSource(filename string) Metadata {
	return Metadata{SourceType: SourceDocument, Document: &DocumentMetadata{Filename: filename}}
}

// EmailSource returns email metadata.
func EmailSource(m EmailMetadata) Metadata {
	return Metadata{SourceType: SourceEmail, Email: &m}
}

// Validate checks that the payload matches the tag.
func (m Metadata) Validate() error {
	switch m.SourceType {
	case SourceDocument:
		if m.Document == nil || m.Email != nil {
			return Errorf(KindInvalidArgument, "document metadata must carry only a document payload")
		}
	case SourceEmail:
		if m.Email == nil || m.Document != nil {
			return Errorf(KindInvalidArgument, "email metadata must carry only an email payload")
		}
	default:
		return Errorf(KindInvalidArgument, "unknown source type %q", m.SourceType)
	}
	return nil
}

// Source returns the attribution for m, substituting placeholders for
// missing fields.
func (m Metadata) Source() Source {
	switch m.SourceType {
	case SourceEmail:
		subject := ""
		if m.Email != nil {
			subject = strings.TrimSpace(m.Email.Subject)
		}
		if subject == "" {
			subject = UnknownSubject
		}
		return Source{Type: SourceEmail, Subject: subject}
	default:
		filename := ""
		if m.Document != nil {
			filename = strings.TrimSpace(m.Document.Filename)
		}
		if filename == "" {
			filename = UnknownFilename
		}
		return Source{Type: SourceDocument, Filename: filename}
	}
}

// KnowledgeRecord is one retrievable unit of client knowledge.
type KnowledgeRecord struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit is a record returned by similarity search.
type Hit struct {
	RecordID int64    `json:"record_id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}
