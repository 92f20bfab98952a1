package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/swaggo/swag"

	_ "github.com/custodia-labs/sercha-rag/docs" // registers the swagger document
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/extractors"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

// Multipart field names accepted by /process
const (
	fieldDocument      = "pdf"
	fieldDocumentAlias = "file"
	fieldBaseURL       = "ollama_url"
)

// sniffLength is how much of an upload is read for content type detection
const sniffLength = 512

// ErrorResponse represents an API error
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"no url"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// ReadyResponse reports readiness and the ingestion worker state
// @Description Readiness response
type ReadyResponse struct {
	Status string         `json:"status" example:"ready"`
	Worker *worker.Health `json:"worker,omitempty"`
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the ingestion lock backend and the ingestion worker
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ErrorResponse  "Lock backend unavailable or worker stopped"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.lock != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.lock.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "lock backend unavailable")
			return
		}
	}

	resp := ReadyResponse{Status: "ready"}
	if s.worker != nil {
		health := s.worker.Health()
		if health.Closed {
			writeError(w, http.StatusServiceUnavailable, "worker stopped")
			return
		}
		resp.Worker = &health
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "swagger document not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// handleProcess godoc
// @Summary      Ingest a document
// @Description  Uploads a document and starts ingesting it in the background. Poll /status for progress.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        pdf         formData  file    true  "Document to ingest (PDF, text or HTML)"
// @Param        ollama_url  formData  string  true  "Embedding service base URL"
// @Success      202  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "no file or no url"
// @Failure      409  {object}  ErrorResponse  "Ingestion already in progress"
// @Failure      413  {object}  ErrorResponse  "Upload too large"
// @Failure      503  {object}  ErrorResponse  "Lock backend unavailable"
// @Router       /process [post]
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file")
		return
	}

	var (
		upload  domain.Upload
		baseURL string
	)
	// Anything saved before an error is ours to remove.
	cleanup := func() {
		if upload.Path != "" {
			_ = os.Remove(upload.Path)
		}
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cleanup()
			s.writeUploadError(w, err)
			return
		}

		switch part.FormName() {
		case fieldDocument, fieldDocumentAlias:
			if upload.Path != "" || part.FileName() == "" {
				_ = part.Close()
				continue
			}
			saved, err := s.saveUpload(part)
			_ = part.Close()
			if err != nil {
				cleanup()
				s.writeUploadError(w, err)
				return
			}
			upload = saved
		case fieldBaseURL:
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			_ = part.Close()
			if err != nil {
				cleanup()
				s.writeUploadError(w, err)
				return
			}
			baseURL = string(value)
		default:
			_ = part.Close()
		}
	}

	if upload.Path == "" {
		writeError(w, http.StatusBadRequest, "no file")
		return
	}
	if strings.TrimSpace(baseURL) == "" {
		cleanup()
		writeError(w, http.StatusBadRequest, "no url")
		return
	}
	upload.BaseURL = baseURL

	// The service owns the upload from here, on success and on error.
	if _, err := s.ingestionService.Start(r.Context(), upload); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "started"})
}

// saveUpload streams a multipart file part into the upload directory
func (s *Server) saveUpload(part *multipart.Part) (domain.Upload, error) {
	filename := filepath.Base(part.FileName())

	f, err := os.CreateTemp(s.uploadDir, "upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return domain.Upload{}, err
	}
	discard := func(err error) (domain.Upload, error) {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return domain.Upload{}, err
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(part, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return discard(err)
	}
	head = head[:n]

	if _, err := f.Write(head); err != nil {
		return discard(err)
	}
	written, err := io.Copy(f, part)
	if err != nil {
		return discard(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return domain.Upload{}, err
	}

	return domain.Upload{
		Path:     f.Name(),
		Filename: filename,
		MimeType: extractors.DetectMIMEType(filename, part.Header.Get("Content-Type"), head),
		Size:     int64(n) + written,
	}, nil
}

// handleStatus godoc
// @Summary      Ingestion status
// @Description  Returns the knowledge base size and the current ingestion job state and log
// @Tags         Ingestion
// @Produce      json
// @Success      200  {object}  domain.IngestionStatus
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.ingestionService.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleClear godoc
// @Summary      Clear the knowledge base
// @Description  Removes every chunk and resets the ingestion job to idle
// @Tags         Ingestion
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /clear [post]
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestionService.Clear(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "cleared"})
}

// handleAsk godoc
// @Summary      Ask a question
// @Description  Answers a question from the most similar knowledge base chunks
// @Tags         Answer
// @Accept       json
// @Produce      json
// @Param        request  body      domain.AskRequest  true  "Question and service URL"
// @Success      200      {object}  domain.Answer
// @Failure      400      {object}  ErrorResponse  "Invalid request, no url, no question or empty knowledge base"
// @Failure      502      {object}  ErrorResponse  "Embedding or generation failed"
// @Router       /ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.answerService.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// writeUploadError reports a failure while reading the multipart body
func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	s.logger.Warn("failed to read upload", "error", err)
	writeError(w, http.StatusBadRequest, "invalid upload")
}

// writeServiceError maps domain errors to HTTP responses
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, inputMessage(err))
	case errors.Is(err, domain.ErrEmptyKnowledgeBase):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrIngestionInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmbeddingFailed), errors.Is(err, domain.ErrGenerationFailed):
		s.logger.Warn("ai service call failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		s.logger.Warn("dependency unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// inputMessage strips the sentinel prefix from a validation error
func inputMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrInvalidInput.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
