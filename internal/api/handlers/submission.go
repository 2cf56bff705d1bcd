package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerworks/rfpd/internal/api"
	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/service"
)

// maxUploadSize caps multipart submission uploads at 32 MB.
const maxUploadSize = 32 << 20

type SubmissionService interface {
	CreateSubmission(ctx context.Context, input service.CreateSubmissionInput) (*domain.Submission, error)
	CreateFromDocument(ctx context.Context, orgID, counterparty, filename string, data []byte) (*domain.Submission, error)
	Process(ctx context.Context, submissionID string) (*domain.Submission, error)
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	GetFindings(ctx context.Context, submissionID string) ([]*domain.Finding, error)
	ListSubmissions(ctx context.Context, input service.ListSubmissionsInput) (*service.ListSubmissionsOutput, error)
	Export(ctx context.Context, submissionID string, format service.ExportFormat) ([]byte, string, error)
}

type SubmissionHandler struct {
	svc SubmissionService
}

func NewSubmissionHandler(svc SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

type CreateSubmissionRequest struct {
	Source       string `json:"source"`
	Counterparty string `json:"counterparty,omitempty"`
	Filename     string `json:"filename,omitempty"`
	RawText      string `json:"raw_text"`
}

type SubmissionResponse struct {
	ID           string `json:"id"`
	OrgID        string `json:"org_id"`
	Source       string `json:"source"`
	Counterparty string `json:"counterparty,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	ProcessedAt  string `json:"processed_at,omitempty"`
}

func submissionToResponse(s *domain.Submission) *SubmissionResponse {
	resp := &SubmissionResponse{
		ID:           s.ID,
		OrgID:        s.OrgID,
		Source:       string(s.Source),
		Counterparty: s.Counterparty,
		Filename:     s.Filename,
		Status:       string(s.Status),
		Error:        s.Error,
		CreatedAt:    s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.ProcessedAt != nil {
		resp.ProcessedAt = s.ProcessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RawText == "" {
		api.Error(w, http.StatusBadRequest, "raw_text is required")
		return
	}

	source := domain.SubmissionSource(req.Source)
	if source == "" {
		source = domain.SubmissionSourceAPI
	}

	submission, err := h.svc.CreateSubmission(r.Context(), service.CreateSubmissionInput{
		OrgID:        orgID,
		Source:       source,
		Counterparty: req.Counterparty,
		Filename:     req.Filename,
		RawText:      req.RawText,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, submissionToResponse(submission))
}

// Upload accepts a multipart questionnaire document (PDF or DOCX) and
// queues a submission for processing.
func (h *SubmissionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	counterparty := r.FormValue("counterparty")

	submission, err := h.svc.CreateFromDocument(r.Context(), orgID, counterparty, header.Filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, submissionToResponse(submission))
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	submission, err := h.svc.GetSubmission(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, submissionToResponse(submission))
}

type FindingResponse struct {
	ID             string  `json:"id"`
	Position       int     `json:"position"`
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	MatchType      string  `json:"match_type"`
	SourceEntryID  string  `json:"source_entry_id,omitempty"`
	SourceQuestion string  `json:"source_question,omitempty"`
}

type FindingListResponse struct {
	Findings []*FindingResponse `json:"findings"`
}

func (h *SubmissionHandler) Findings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	findings, err := h.svc.GetFindings(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*FindingResponse, len(findings))
	for i, f := range findings {
		responses[i] = &FindingResponse{
			ID:             f.ID,
			Position:       f.Position,
			Question:       f.Question,
			Answer:         f.Answer,
			Confidence:     f.Confidence,
			MatchType:      string(f.MatchType),
			SourceEntryID:  f.SourceEntryID,
			SourceQuestion: f.SourceQuestion,
		}
	}

	api.Success(w, http.StatusOK, FindingListResponse{Findings: responses})
}

type SubmissionListResponse struct {
	Items   []*SubmissionResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListSubmissions(r.Context(), service.ListSubmissionsInput{
		OrgID:  orgID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SubmissionResponse, len(output.Items))
	for i, s := range output.Items {
		responses[i] = submissionToResponse(s)
	}

	api.Success(w, http.StatusOK, SubmissionListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

// Process runs extraction and matching synchronously instead of waiting
// for the background worker to pick the submission up.
func (h *SubmissionHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	submission, err := h.svc.Process(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, submissionToResponse(submission))
}

func (h *SubmissionHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	format := service.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = service.ExportFormatEmail
	}
	if format != service.ExportFormatEmail && format != service.ExportFormatDOCX {
		api.Error(w, http.StatusBadRequest, "format must be email or docx")
		return
	}

	payload, contentType, err := h.svc.Export(r.Context(), id, format)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	ext := "txt"
	if format == service.ExportFormatDOCX {
		ext = "docx"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="submission-%s.%s"`, id, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
