package models

// EmailMessage is an email submitted for ingestion.
type EmailMessage struct {
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	DateSent  string `json:"date_sent"`
	ThreadID  string `json:"thread_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// Metadata returns the email metadata stored alongside the message body.
func (m EmailMessage) Metadata() Metadata {
	return EmailSource(EmailMetadata{
		Subject:   m.Subject,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		DateSent:  m.DateSent,
		ThreadID:  m.ThreadID,
		MessageID: m.MessageID,
	})
}
