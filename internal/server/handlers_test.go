package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hyperjump/lexsy/internal/config"
	"github.com/hyperjump/lexsy/internal/embedding"
	"github.com/hyperjump/lexsy/internal/extract"
	"github.com/hyperjump/lexsy/internal/extract/extracttest"
	"github.com/hyperjump/lexsy/internal/ingest"
	"github.com/hyperjump/lexsy/internal/knowledge"
	"github.com/hyperjump/lexsy/internal/llm"
	"github.com/hyperjump/lexsy/internal/mail"
	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/qa"
)

type fakeMail struct {
	authenticated bool
}

func (f *fakeMail) IsAuthenticated(ctx context.Context) bool { return f.authenticated }

func (f *fakeMail) FetchThread(ctx context.Context, threadID string) ([]models.EmailMessage, error) {
	return []models.EmailMessage{{Subject: "Live thread", Body: "The cap table was updated on Monday."}}, nil
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    models.Kind `json:"kind"`
		Message string      `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, provider mail.Provider) http.Handler {
	t.Helper()
	store := knowledge.NewStore(knowledge.NewMemoryRepository(), embedding.NewHashEmbedder(64))
	t.Cleanup(func() { _ = store.Close() })
	in := ingest.NewPipeline(store, extract.NewExtractor(extract.WithTempDir(t.TempDir())))
	answers := qa.NewPipeline(store, llm.NewExtractiveCompleter())
	cfg := &config.ServerConfig{Port: 8000, MaxUploadMB: 1, RequestTimeoutSecs: 30}
	return NewServer(in, answers, store, provider, cfg, nil).Handler()
}

func do(t *testing.T, h http.Handler, r *http.Request) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var out response
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w.Code, out
}

func uploadRequest(t *testing.T, clientID, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/documents/"+clientID+"/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func askJSON(clientID, question string) *http.Request {
	body, _ := json.Marshal(map[string]string{"question": question})
	r := httptest.NewRequest(http.MethodPost, "/api/chat/"+clientID+"/ask", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, &fakeMail{authenticated: true})
	code, out := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if code != http.StatusOK || !out.Success {
		t.Fatalf("status: got %d success=%v", code, out.Success)
	}
	var data struct {
		Status            string `json:"status"`
		MailAuthenticated bool   `json:"mail_authenticated"`
	}
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Status != "ok" || !data.MailAuthenticated {
		t.Errorf("health: got %+v", data)
	}
}

func TestHandleMailStatus_noProvider(t *testing.T) {
	h := newTestServer(t, nil)
	_, out := do(t, h, httptest.NewRequest(http.MethodGet, "/auth/gmail/status", nil))
	if string(out.Data) != `{"authenticated":false}` {
		t.Errorf("data: got %s", out.Data)
	}
}

func TestUploadThenAsk(t *testing.T) {
	h := newTestServer(t, nil)
	pdf := extracttest.PDF("The advisor receives 0.5% equity vesting monthly over two years.")
	code, out := do(t, h, uploadRequest(t, "1", "agreement.pdf", pdf))
	if code != http.StatusOK {
		t.Fatalf("upload status: got %d (%+v)", code, out.Error)
	}
	var up models.UploadResult
	if err := json.Unmarshal(out.Data, &up); err != nil {
		t.Fatal(err)
	}
	if up.Filename != "agreement.pdf" || up.Status != models.UploadStatusEmbedded {
		t.Errorf("upload result: got %+v", up)
	}

	code, out = do(t, h, askJSON("1", "What equity does the advisor receive?"))
	if code != http.StatusOK {
		t.Fatalf("ask status: got %d", code)
	}
	var ans models.Answer
	if err := json.Unmarshal(out.Data, &ans); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ans.Answer, "0.5%") {
		t.Errorf("answer: got %q", ans.Answer)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Filename != "agreement.pdf" {
		t.Errorf("sources: got %+v", ans.Sources)
	}
}

func TestUpload_errorsMapToStatus(t *testing.T) {
	h := newTestServer(t, nil)
	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		kind     models.Kind
	}{
		{"unsupported", "notes.xyz", []byte("text"), http.StatusUnsupportedMediaType, models.KindUnsupportedFormat},
		{"empty", "blank.txt", []byte("   \n"), http.StatusBadRequest, models.KindEmptyContent},
		{"corrupt", "broken.pdf", []byte("not a pdf"), http.StatusBadRequest, models.KindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, h, uploadRequest(t, "3", tt.filename, tt.content))
			if code != tt.status {
				t.Errorf("status: got %d want %d", code, tt.status)
			}
			if out.Success || out.Error == nil || out.Error.Kind != tt.kind {
				t.Errorf("error body: got %+v", out.Error)
			}
		})
	}
	_, out := do(t, h, httptest.NewRequest(http.MethodGet, "/api/clients/3/knowledge", nil))
	var kn struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(out.Data, &kn); err != nil {
		t.Fatal(err)
	}
	if len(kn.Records) != 0 {
		t.Errorf("records after failed uploads: got %d", len(kn.Records))
	}
}

func TestUpload_missingFile(t *testing.T) {
	h := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodPost, "/api/documents/1/upload", strings.NewReader(""))
	code, out := do(t, h, r)
	if code != http.StatusBadRequest || out.Error.Kind != models.KindInvalidArgument {
		t.Errorf("got %d %+v", code, out.Error)
	}
}

func TestInvalidClientID(t *testing.T) {
	h := newTestServer(t, nil)
	code, out := do(t, h, askJSON("abc", "anything"))
	if code != http.StatusBadRequest || out.Error.Kind != models.KindInvalidArgument {
		t.Errorf("got %d %+v", code, out.Error)
	}
}

func TestIngestEmails(t *testing.T) {
	h := newTestServer(t, nil)
	body := `{"emails":[
		{"subject":"Board approval","sender":"a@example.com","recipient":"b@example.com","body":"The board approved the grant.","date_sent":"2025-07-24"},
		{"subject":"Missing body","sender":"a@example.com"}
	]}`
	r := httptest.NewRequest(http.MethodPost, "/api/emails/4/ingest", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	code, out := do(t, h, r)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	var res models.BatchResult
	if err := json.Unmarshal(out.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Total != 2 || len(res.Failures) != 1 || res.BatchID == "" {
		t.Errorf("batch: got %+v", res)
	}
}

func TestIngestSampleEmailsThenKnowledge(t *testing.T) {
	h := newTestServer(t, nil)
	code, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/api/emails/5/ingest-sample-emails", nil))
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	_, out := do(t, h, httptest.NewRequest(http.MethodGet, "/api/clients/5/knowledge", nil))
	var kn struct {
		ClientID int64                     `json:"client_id"`
		Records  []*models.KnowledgeRecord `json:"records"`
	}
	if err := json.Unmarshal(out.Data, &kn); err != nil {
		t.Fatal(err)
	}
	if kn.ClientID != 5 || len(kn.Records) != 3 {
		t.Fatalf("knowledge: got client %d with %d records", kn.ClientID, len(kn.Records))
	}
	if kn.Records[0].Embedding != nil {
		t.Error("embeddings must not be serialized")
	}
}

func TestIngestThread(t *testing.T) {
	form := url.Values{"thread_id": {"18c2f"}}

	t.Run("unauthenticated uses demonstration thread", func(t *testing.T) {
		h := newTestServer(t, &fakeMail{})
		r := httptest.NewRequest(http.MethodPost, "/api/gmail/1/ingest-thread", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, out := do(t, h, r)
		var res models.ThreadResult
		if err := json.Unmarshal(out.Data, &res); err != nil {
			t.Fatal(err)
		}
		if !res.UsedFallback || res.ThreadID != ingest.DemoThreadID {
			t.Errorf("thread: got %+v", res)
		}
	})

	t.Run("authenticated fetches thread", func(t *testing.T) {
		h := newTestServer(t, &fakeMail{authenticated: true})
		r := httptest.NewRequest(http.MethodPost, "/api/gmail/1/ingest-thread", strings.NewReader(`{"thread_id":"18c2f"}`))
		r.Header.Set("Content-Type", "application/json")
		_, out := do(t, h, r)
		var res models.ThreadResult
		if err := json.Unmarshal(out.Data, &res); err != nil {
			t.Fatal(err)
		}
		if res.UsedFallback || res.ThreadID != "18c2f" || res.Processed != 1 {
			t.Errorf("thread: got %+v", res)
		}
	})

	t.Run("demonstration thread on request", func(t *testing.T) {
		h := newTestServer(t, &fakeMail{authenticated: true})
		r := httptest.NewRequest(http.MethodPost, "/api/gmail/1/ingest-demo", nil)
		code, out := do(t, h, r)
		if code != http.StatusOK {
			t.Fatalf("status: got %d", code)
		}
		var res models.ThreadResult
		if err := json.Unmarshal(out.Data, &res); err != nil {
			t.Fatal(err)
		}
		if res.UsedFallback || res.ThreadID != ingest.DemoThreadID || res.Processed != len(ingest.DemoThread()) {
			t.Errorf("thread: got %+v", res)
		}
	})

	t.Run("missing thread id", func(t *testing.T) {
		h := newTestServer(t, nil)
		r := httptest.NewRequest(http.MethodPost, "/api/gmail/1/ingest-thread", nil)
		code, _ := do(t, h, r)
		if code != http.StatusBadRequest {
			t.Errorf("status: got %d", code)
		}
	})
}

func TestAsk_emptyClient(t *testing.T) {
	h := newTestServer(t, nil)
	form := url.Values{"question": {"Who is the registered agent?"}}
	r := httptest.NewRequest(http.MethodPost, "/api/chat/9/ask", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, out := do(t, h, r)
	var ans models.Answer
	if err := json.Unmarshal(out.Data, &ans); err != nil {
		t.Fatal(err)
	}
	if ans.Answer != qa.NoInformationAnswer || ans.Sources == nil || len(ans.Sources) != 0 {
		t.Errorf("answer: got %+v", ans)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[models.Kind]int{
		models.KindAuth:              http.StatusUnauthorized,
		models.KindDimensionMismatch: http.StatusConflict,
		models.KindProvider:          http.StatusBadGateway,
		models.KindAnswerProvider:    http.StatusBadGateway,
		models.KindTimeout:           http.StatusGatewayTimeout,
		models.KindNotFound:          http.StatusNotFound,
		models.KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusFor(models.NewError(kind, "x")); got != want {
			t.Errorf("%s: got %d want %d", kind, got, want)
		}
	}

	wrapped := models.Wrap(models.KindAnswerProvider, "generate answer", models.ErrTimeout)
	if got := statusFor(wrapped); got != http.StatusGatewayTimeout {
		t.Errorf("wrapped timeout: got %d", got)
	}
}

type timeoutCompleter struct{}

func (timeoutCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", models.Wrap(models.KindTimeout, "answer provider timed out", context.DeadlineExceeded)
}

func (timeoutCompleter) Name() string { return "timeout" }

func TestAsk_answerProviderTimeout(t *testing.T) {
	store := knowledge.NewStore(knowledge.NewMemoryRepository(), embedding.NewHashEmbedder(64))
	t.Cleanup(func() { _ = store.Close() })
	in := ingest.NewPipeline(store, nil)
	answers := qa.NewPipeline(store, timeoutCompleter{})
	cfg := &config.ServerConfig{Port: 8000, MaxUploadMB: 1, RequestTimeoutSecs: 30}
	h := NewServer(in, answers, store, nil, cfg, nil).Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/emails/2/ingest-sample-emails", nil))

	form := url.Values{"question": {"What did the contract review cover?"}}
	r := httptest.NewRequest(http.MethodPost, "/api/chat/2/ask", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	code, out := do(t, h, r)
	if code != http.StatusGatewayTimeout {
		t.Fatalf("status: got %d", code)
	}
	if out.Success || out.Error == nil || out.Error.Kind != models.KindAnswerProvider {
		t.Errorf("error body: got %+v", out.Error)
	}
}
