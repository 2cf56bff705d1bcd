package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ledgerworks/rfpd/internal/api"
	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/domain"
)

type AnswerService interface {
	AnswerQuestion(ctx context.Context, orgID, question string) (*domain.Answer, error)
	AnswerQuestions(ctx context.Context, orgID string, questions []string) ([]*domain.Answer, error)
	ExtractQuestions(ctx context.Context, text string) []string
}

type AnswerHandler struct {
	svc AnswerService
}

func NewAnswerHandler(svc AnswerService) *AnswerHandler {
	return &AnswerHandler{svc: svc}
}

type AnswerRequest struct {
	Question string `json:"question"`
}

type BatchAnswerRequest struct {
	Questions []string `json:"questions"`
}

type AnswerResponse struct {
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	MatchType      string  `json:"match_type"`
	Source         string  `json:"source"`
	SourceLabel    string  `json:"source_label"`
	SourceEntryID  string  `json:"source_entry_id,omitempty"`
	SourceQuestion string  `json:"source_question,omitempty"`
}

type BatchAnswerResponse struct {
	Answers []*AnswerResponse `json:"answers"`
}

type ExtractRequest struct {
	Text string `json:"text"`
}

type ExtractResponse struct {
	Questions []string `json:"questions"`
}

func answerToResponse(a *domain.Answer) *AnswerResponse {
	return &AnswerResponse{
		Question:       a.Question,
		Answer:         a.Answer,
		Confidence:     a.Confidence,
		MatchType:      string(a.MatchType),
		Source:         string(a.Source),
		SourceLabel:    a.SourceLabel,
		SourceEntryID:  a.SourceEntryID,
		SourceQuestion: a.SourceQuestion,
	}
}

func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.svc.AnswerQuestion(r.Context(), orgID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}

func (h *AnswerHandler) AnswerBatch(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BatchAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Questions) == 0 {
		api.Error(w, http.StatusBadRequest, "questions is required")
		return
	}

	answers, err := h.svc.AnswerQuestions(r.Context(), orgID, req.Questions)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AnswerResponse, len(answers))
	for i, a := range answers {
		responses[i] = answerToResponse(a)
	}

	api.Success(w, http.StatusOK, BatchAnswerResponse{Answers: responses})
}

// Extract pulls questions out of free-form RFP text without answering
// them.
func (h *AnswerHandler) Extract(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	questions := h.svc.ExtractQuestions(r.Context(), req.Text)
	if questions == nil {
		questions = []string{}
	}

	api.Success(w, http.StatusOK, ExtractResponse{Questions: questions})
}
