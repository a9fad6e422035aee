package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/types"
)

const (
	maxRecordingBytes  = 512 << 20
	maxMultipartMemory = 32 << 20
	formFieldRecording = "recording"
	interviewSubject   = "Interview"
)

// InterviewHandler provides HTTP handlers for interviews.
type InterviewHandler struct {
	interviewService *services.InterviewService
}

func NewInterviewHandler(interviewService *services.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviewService: interviewService}
}

// InterviewRouter registers interview routes. Every route requires authentication.
func InterviewRouter(r chi.Router, interviewService *services.InterviewService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewInterviewHandler(interviewService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListInterviews)
	r.Post("/", handler.CreateInterview)
	r.Get("/stats/summary", handler.StatsSummary)
	r.Route("/{interviewID}", func(r chi.Router) {
		r.Get("/", handler.GetInterview)
		r.Put("/", handler.UpdateInterview)
		r.Delete("/", handler.CancelInterview)
		r.Put("/complete", handler.CompleteInterview)
		r.With(RequireInterviewer).Put("/feedback", handler.RecordFeedback)
		r.Put("/recording", handler.UploadRecording)
		r.Get("/recording", handler.DownloadRecording)
	})
}

// InterviewResponse acknowledges a mutation and carries the interview.
type InterviewResponse struct {
	Message   string          `json:"message"`
	Interview types.Interview `json:"interview"`
}

func (h *InterviewHandler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	list, err := h.interviewService.List(r.Context(), userID, services.InterviewListQuery{
		Status: query.Get("status"),
		Type:   query.Get("type"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InterviewHandler) GetInterview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	interview, err := h.interviewService.Get(r.Context(), userID, chi.URLParam(r, "interviewID"))
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

func (h *InterviewHandler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	var req services.CreateInterviewInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interview, err := h.interviewService.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusCreated, InterviewResponse{Message: "Interview scheduled successfully", Interview: interview})
}

func (h *InterviewHandler) UpdateInterview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	var req services.UpdateInterviewInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interview, err := h.interviewService.Update(r.Context(), userID, chi.URLParam(r, "interviewID"), req)
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, InterviewResponse{Message: "Interview updated successfully", Interview: interview})
}

func (h *InterviewHandler) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	interview, err := h.interviewService.Complete(r.Context(), userID, chi.URLParam(r, "interviewID"))
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, InterviewResponse{Message: "Interview marked as completed", Interview: interview})
}

func (h *InterviewHandler) CancelInterview(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	if _, err := h.interviewService.Cancel(r.Context(), userID, chi.URLParam(r, "interviewID")); err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Interview cancelled successfully"})
}

func (h *InterviewHandler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	grader, ok := AccountFromContext(r.Context())
	if !ok {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	var req services.FeedbackInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interview, err := h.interviewService.RecordFeedback(r.Context(), grader, chi.URLParam(r, "interviewID"), req)
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, InterviewResponse{Message: "Feedback added successfully", Interview: interview})
}

func (h *InterviewHandler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	summary, err := h.interviewService.StatsSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *InterviewHandler) UploadRecording(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecordingBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "uploaded file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldRecording)
	if err != nil {
		writeError(w, http.StatusBadRequest, "recording file is required")
		return
	}
	defer file.Close()

	interview, err := h.interviewService.UploadRecording(r.Context(), userID, chi.URLParam(r, "interviewID"), services.RecordingUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	writeJSON(w, http.StatusOK, InterviewResponse{Message: "Recording uploaded successfully", Interview: interview})
}

func (h *InterviewHandler) DownloadRecording(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	body, name, err := h.interviewService.OpenRecording(r.Context(), userID, chi.URLParam(r, "interviewID"))
	if err != nil {
		writeServiceError(w, err, interviewSubject)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
