package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ledgerworks/rfpd/internal/api"
	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/service"
)

// VectorSearchService answers embedding-based similarity queries.
type VectorSearchService interface {
	Search(ctx context.Context, orgID, query string, limit int) ([]*service.VectorSearchResult, error)
}

type VectorSearchHandler struct {
	svc VectorSearchService
}

func NewVectorSearchHandler(svc VectorSearchService) *VectorSearchHandler {
	return &VectorSearchHandler{svc: svc}
}

type VectorSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type VectorHitResponse struct {
	Entry *EntryResponse `json:"entry"`
	Score float32        `json:"score"`
}

type VectorSearchResponse struct {
	Results []*VectorHitResponse `json:"results"`
}

// Search embeds the query and returns the closest entries by cosine
// distance. Unlike /search this ranks the whole corpus; there is no
// confidence cutoff.
func (h *VectorSearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req VectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Search(r.Context(), orgID, req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*VectorHitResponse, len(results))
	for i, res := range results {
		responses[i] = &VectorHitResponse{
			Entry: entryToResponse(res.Entry),
			Score: res.Score,
		}
	}

	api.Success(w, http.StatusOK, VectorSearchResponse{Results: responses})
}
