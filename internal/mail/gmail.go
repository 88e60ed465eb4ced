package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

// DefaultGmailBaseURL is the Gmail REST API host.
const DefaultGmailBaseURL = "https://gmail.googleapis.com"

// GmailConfig configures a GmailProvider. AccessToken is an OAuth bearer
// token with a Gmail read scope.
type GmailConfig struct {
	AccessToken string
	UserID      string
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// GmailProvider reads threads through the Gmail REST API.
type GmailProvider struct {
	token   string
	userID  string
	baseURL string
	client  *http.Client
}

// NewGmailProvider returns a provider for cfg.
func NewGmailProvider(cfg GmailConfig) *GmailProvider {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGmailBaseURL
	}
	return &GmailProvider{
		token:   strings.TrimSpace(cfg.AccessToken),
		userID:  userID,
		baseURL: baseURL,
		client:  client,
	}
}

// IsAuthenticated reports whether an access token is configured.
func (g *GmailProvider) IsAuthenticated(ctx context.Context) bool {
	return g.token != ""
}

type gmailThread struct {
	ID       string         `json:"id"`
	Messages []gmailMessage `json:"messages"`
}

type gmailMessage struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId"`
	Snippet      string       `json:"snippet"`
	InternalDate string       `json:"internalDate"`
	Payload      gmailPayload `json:"payload"`
}

type gmailPayload struct {
	MimeType string         `json:"mimeType"`
	Headers  []gmailHeader  `json:"headers"`
	Body     gmailBody      `json:"body"`
	Parts    []gmailPayload `json:"parts"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailBody struct {
	Data string `json:"data"`
}

// FetchThread returns the messages of threadID oldest first.
func (g *GmailProvider) FetchThread(ctx context.Context, threadID string) ([]models.EmailMessage, error) {
	if g.token == "" {
		return nil, models.NewError(models.KindAuth, "gmail: no access token configured")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, models.NewError(models.KindInvalidArgument, "gmail: thread id is required")
	}

	endpoint := fmt.Sprintf("%s/gmail/v1/users/%s/threads/%s?format=full",
		g.baseURL, url.PathEscape(g.userID), url.PathEscape(threadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, capability.Classify(ctx, "gmail fetch thread", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := fmt.Errorf("gmail threads.get: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, models.Wrap(models.KindAuth, "gmail rejected the access token", detail)
		case http.StatusNotFound:
			return nil, models.Wrap(models.KindNotFound, "gmail thread not found", detail)
		default:
			return nil, models.Wrap(models.KindProvider, "gmail fetch thread failed", detail)
		}
	}

	var thread gmailThread
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		return nil, models.Wrap(models.KindProvider, "gmail: decode thread", err)
	}
	messages := make([]models.EmailMessage, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		messages = append(messages, toEmailMessage(m, thread.ID))
	}
	return messages, nil
}

func toEmailMessage(m gmailMessage, threadID string) models.EmailMessage {
	if m.ThreadID != "" {
		threadID = m.ThreadID
	}
	body := plainTextBody(m.Payload)
	if strings.TrimSpace(body) == "" {
		body = m.Snippet
	}
	return models.EmailMessage{
		Subject:   header(m.Payload.Headers, "Subject"),
		Sender:    header(m.Payload.Headers, "From"),
		Recipient: header(m.Payload.Headers, "To"),
		Body:      body,
		DateSent:  dateSent(header(m.Payload.Headers, "Date"), m.InternalDate),
		ThreadID:  threadID,
		MessageID: m.ID,
	}
}

func header(headers []gmailHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return strings.TrimSpace(h.Value)
		}
	}
	return ""
}

// plainTextBody returns the first text/plain part, searching depth first.
func plainTextBody(p gmailPayload) string {
	if strings.HasPrefix(p.MimeType, "text/plain") && p.Body.Data != "" {
		if text, err := decodeBase64URL(p.Body.Data); err == nil {
			return text
		}
	}
	for _, part := range p.Parts {
		if text := plainTextBody(part); text != "" {
			return text
		}
	}
	return ""
}

func decodeBase64URL(data string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// dateSent formats the message date as YYYY-MM-DD, preferring the Date
// header and falling back to Gmail's internal timestamp in milliseconds.
func dateSent(dateHeader, internalDate string) string {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	if ms, err := strconv.ParseInt(internalDate, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC().Format("2006-01-02")
	}
	return dateHeader
}
