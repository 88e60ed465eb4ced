package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/telemetry"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    models.Kind `json:"kind"`
	Message string      `json:"message"`
}

type emailBatchRequest struct {
	Emails []models.EmailMessage `json:"emails"`
}

type knowledgeResponse struct {
	ClientID int64                     `json:"client_id"`
	Records  []*models.KnowledgeRecord `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"mail_authenticated": s.mailAuthenticated(r),
	})
}

func (s *Server) handleMailStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"authenticated": s.mailAuthenticated(r)})
}

func (s *Server) mailAuthenticated(r *http.Request) bool {
	return s.mail != nil && s.mail.IsAuthenticated(r.Context())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondStatus(w, r, http.StatusRequestEntityTooLarge,
				models.Errorf(models.KindInvalidArgument, "upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, r, models.Wrap(models.KindInvalidArgument, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, models.Wrap(models.KindInvalidArgument, "read upload", err))
		return
	}
	s.logger.Debug("upload request", zap.Int64("client_id", clientID), zap.String("filename", header.Filename), zap.Int("bytes", len(raw)))
	res, err := s.ingest.IngestDocument(r.Context(), clientID, header.Filename, raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleIngestEmails(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	var req emailBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, models.Wrap(models.KindInvalidArgument, "invalid request body", err))
		return
	}
	s.respondJSON(w, http.StatusOK, s.ingest.IngestEmailBatch(r.Context(), clientID, req.Emails))
}

func (s *Server) handleIngestSampleEmails(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.ingest.IngestSampleEmails(r.Context(), clientID))
}

func (s *Server) handleIngestThread(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	threadID, err := formValue(r, "thread_id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if threadID == "" {
		s.respondError(w, r, models.NewError(models.KindInvalidArgument, "thread_id is required"))
		return
	}
	s.respondJSON(w, http.StatusOK, s.ingest.IngestProviderThread(r.Context(), clientID, threadID, s.mail))
}

func (s *Server) handleIngestDemoThread(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.ingest.IngestDemoThread(r.Context(), clientID))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	question, err := formValue(r, "question")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx, span := telemetry.StartSpan(r.Context(), "qa.answer", clientID)
	defer span.End()
	answer, err := s.qa.Answer(ctx, clientID, question)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientID(w, r)
	if !ok {
		return
	}
	records, err := s.store.List(r.Context(), clientID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, knowledgeResponse{ClientID: clientID, Records: records})
}

func (s *Server) clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "client_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		s.respondError(w, r, models.Errorf(models.KindInvalidArgument, "invalid client id %q", raw))
		return 0, false
	}
	return id, true
}

// formValue reads name from a JSON object body or from form fields.
func formValue(r *http.Request, name string) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", models.Wrap(models.KindInvalidArgument, "invalid request body", err)
		}
		v, _ := body[name].(string)
		return strings.TrimSpace(v), nil
	}
	return strings.TrimSpace(r.FormValue(name)), nil
}

// statusFor maps an error kind to an HTTP status. A timeout anywhere in the
// chain wins over the outer kind.
func statusFor(err error) int {
	if errors.Is(err, models.ErrTimeout) {
		return http.StatusGatewayTimeout
	}
	switch models.KindOf(err) {
	case models.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case models.KindDecode, models.KindEmptyContent, models.KindInvalidArgument:
		return http.StatusBadRequest
	case models.KindAuth:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindDimensionMismatch:
		return http.StatusConflict
	case models.KindProvider, models.KindAnswerProvider:
		return http.StatusBadGateway
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondStatus(w, r, statusFor(err), err)
}

func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
		telemetry.CaptureError(r.Context(), err)
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Error: &errorBody{Kind: models.KindOf(err), Message: err.Error()},
	})
}
