package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerworks/rfpd/internal/api"
	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/service"
)

type EntryService interface {
	CreateEntry(ctx context.Context, input service.CreateEntryInput) (*domain.Entry, error)
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, input service.UpdateEntryInput) (*domain.Entry, error)
	DeactivateEntry(ctx context.Context, id, modifiedBy string) (*domain.Entry, error)
	ListEntries(ctx context.Context, input service.ListEntriesInput) (*service.ListEntriesOutput, error)
	Search(ctx context.Context, orgID, question string, minConfidence float64) ([]domain.Match, error)
	ImportJSON(ctx context.Context, orgID string, data []byte, createdBy string) (*service.ImportResult, error)
	RebuildIndex(ctx context.Context, orgID string) (int, error)
}

type EntryHandler struct {
	svc EntryService
}

func NewEntryHandler(svc EntryService) *EntryHandler {
	return &EntryHandler{svc: svc}
}

type CreateEntryRequest struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
}

type UpdateEntryRequest struct {
	Question   *string  `json:"question,omitempty"`
	Answer     *string  `json:"answer,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	ModifiedBy string   `json:"modified_by,omitempty"`
}

type EntryResponse struct {
	ID        string   `json:"id"`
	OrgID     string   `json:"org_id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func entryToResponse(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:        e.ID,
		OrgID:     e.OrgID,
		Question:  e.Question,
		Answer:    e.Answer,
		Category:  e.Category,
		Tags:      e.Tags,
		Active:    e.Active,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	input := service.CreateEntryInput{
		OrgID:     orgID,
		Question:  req.Question,
		Answer:    req.Answer,
		Category:  req.Category,
		Tags:      req.Tags,
		CreatedBy: req.CreatedBy,
	}

	entry, err := h.svc.CreateEntry(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateEntryInput{
		EntryID:    id,
		Question:   req.Question,
		Answer:     req.Answer,
		Category:   req.Category,
		Tags:       req.Tags,
		ModifiedBy: req.ModifiedBy,
	}

	entry, err := h.svc.UpdateEntry(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

// Delete deactivates the entry. Deactivated entries stay in the database
// for audit but drop out of the search index.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.DeactivateEntry(r.Context(), id, r.Header.Get("X-User"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

type EntryListResponse struct {
	Items   []*EntryResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
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

	output, err := h.svc.ListEntries(r.Context(), service.ListEntriesInput{
		OrgID:  orgID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EntryResponse, len(output.Items))
	for i, e := range output.Items {
		responses[i] = entryToResponse(e)
	}

	api.Success(w, http.StatusOK, EntryListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

type SearchRequest struct {
	Question      string   `json:"question"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

type MatchResponse struct {
	EntryID    string   `json:"entry_id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Confidence float64  `json:"confidence"`
	MatchType  string   `json:"match_type"`
}

type SearchResponse struct {
	Matches []*MatchResponse `json:"matches"`
}

func (h *EntryHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	minConfidence := 0.1
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	matches, err := h.svc.Search(r.Context(), orgID, req.Question, minConfidence)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MatchResponse, len(matches))
	for i, m := range matches {
		responses[i] = &MatchResponse{
			EntryID:    m.EntryID,
			Question:   m.Question,
			Answer:     m.Answer,
			Category:   m.Category,
			Tags:       m.Tags,
			Confidence: m.Confidence,
			MatchType:  string(m.Type),
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Matches: responses})
}

type ImportResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Import bulk-loads a JSON array of question/answer records.
func (h *EntryHandler) Import(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := h.svc.ImportJSON(r.Context(), orgID, data, r.Header.Get("X-User"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ImportResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	})
}

type RebuildIndexResponse struct {
	IndexedEntries int `json:"indexed_entries"`
}

func (h *EntryHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	size, err := h.svc.RebuildIndex(r.Context(), orgID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RebuildIndexResponse{IndexedEntries: size})
}
