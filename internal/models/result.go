package models

// UploadStatusEmbedded is reported once a document's text is stored.
const UploadStatusEmbedded = "embedded"

// UploadResult is returned by document ingestion.
type UploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	RecordID int64  `json:"record_id"`
}

// ItemFailure describes one email that could not be ingested.
type ItemFailure struct {
	Index   int    `json:"index"`
	Subject string `json:"subject,omitempty"`
	Kind    Kind   `json:"kind"`
	Reason  string `json:"reason"`
}

// BatchResult is returned by email batch ingestion.
type BatchResult struct {
	BatchID   string        `json:"batch_id"`
	Processed int           `json:"emails_processed"`
	Total     int           `json:"total"`
	Failures  []ItemFailure `json:"failures"`
}

// ThreadResult is returned by mail thread ingestion. When the provider
// could not be reached the demonstration thread is ingested instead,
// UsedFallback is set and ThreadID names the demonstration thread.
type ThreadResult struct {
	Processed      int           `json:"emails_processed"`
	Total          int           `json:"total"`
	ThreadID       string        `json:"thread_id"`
	UsedFallback   bool          `json:"used_fallback"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	Failures       []ItemFailure `json:"failures"`
}

// Source attributes part of an answer to a stored record.
type Source struct {
	Type     SourceType `json:"type"`
	Subject  string     `json:"subject,omitempty"`
	Filename string     `json:"filename,omitempty"`
}

// Answer is the result of a question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
