package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/service"
)

type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) CreateEntry(ctx context.Context, input service.CreateEntryInput) (*domain.Entry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) UpdateEntry(ctx context.Context, input service.UpdateEntryInput) (*domain.Entry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) DeactivateEntry(ctx context.Context, id, modifiedBy string) (*domain.Entry, error) {
	args := m.Called(ctx, id, modifiedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) ListEntries(ctx context.Context, input service.ListEntriesInput) (*service.ListEntriesOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListEntriesOutput), args.Error(1)
}

func (m *MockEntryService) Search(ctx context.Context, orgID, question string, minConfidence float64) ([]domain.Match, error) {
	args := m.Called(ctx, orgID, question, minConfidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Match), args.Error(1)
}

func (m *MockEntryService) ImportJSON(ctx context.Context, orgID string, data []byte, createdBy string) (*service.ImportResult, error) {
	args := m.Called(ctx, orgID, data, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportResult), args.Error(1)
}

func (m *MockEntryService) RebuildIndex(ctx context.Context, orgID string) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func newTestEntry() *domain.Entry {
	now := time.Now().UTC()
	return &domain.Entry{
		ID:        "e-123",
		OrgID:     "org-456",
		Question:  "What consensus mechanism does the network use?",
		Answer:    "Proof of History combined with Proof of Stake.",
		Category:  "technology",
		Tags:      []string{"consensus"},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func requestWithOrgID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.OrgIDKey, "org-456")
	return req.WithContext(ctx)
}

func requestWithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestEntryHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	expected := newTestEntry()
	mockSvc.On("CreateEntry", mock.Anything, mock.MatchedBy(func(input service.CreateEntryInput) bool {
		return input.OrgID == "org-456" && input.Question == "What consensus mechanism does the network use?"
	})).Return(expected, nil)

	body := `{"question":"What consensus mechanism does the network use?","answer":"Proof of History combined with Proof of Stake.","category":"technology","tags":["consensus"]}`
	req := requestWithOrgID(http.MethodPost, "/entries", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "e-123", data["id"])
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Create_Unauthorized(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	body := `{"question":"Q?","answer":"A"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntryHandler_Create_InvalidJSON(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	req := requestWithOrgID(http.MethodPost, "/entries", []byte(`{invalid`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestEntryHandler_Create_MissingQuestion(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	body := `{"answer":"An answer"}`
	req := requestWithOrgID(http.MethodPost, "/entries", []byte(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")
}

func TestEntryHandler_Create_MissingAnswer(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	body := `{"question":"A question?"}`
	req := requestWithOrgID(http.MethodPost, "/entries", []byte(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "answer is required")
}

func TestEntryHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	mockSvc.On("GetEntry", mock.Anything, "e-123").Return(newTestEntry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/entries/e-123", nil)
	req = requestWithURLParam(req, "id", "e-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	mockSvc.On("GetEntry", mock.Anything, "e-999").Return(nil, domain.ErrEntryNotFound)

	req := httptest.NewRequest(http.MethodGet, "/entries/e-999", nil)
	req = requestWithURLParam(req, "id", "e-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	expected := newTestEntry()
	mockSvc.On("UpdateEntry", mock.Anything, mock.MatchedBy(func(input service.UpdateEntryInput) bool {
		return input.EntryID == "e-123" && input.Answer != nil && *input.Answer == "Updated answer."
	})).Return(expected, nil)

	body := `{"answer":"Updated answer."}`
	req := requestWithOrgID(http.MethodPut, "/entries/e-123", []byte(body))
	req = requestWithURLParam(req, "id", "e-123")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Delete_Deactivates(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	deactivated := newTestEntry()
	deactivated.Active = false
	mockSvc.On("DeactivateEntry", mock.Anything, "e-123", "alice").Return(deactivated, nil)

	req := requestWithOrgID(http.MethodDelete, "/entries/e-123", nil)
	req.Header.Set("X-User", "alice")
	req = requestWithURLParam(req, "id", "e-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["active"])
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_List_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	output := &service.ListEntriesOutput{
		Items:   []*domain.Entry{newTestEntry()},
		Cursor:  "next-cursor",
		HasMore: true,
	}
	mockSvc.On("ListEntries", mock.Anything, mock.MatchedBy(func(input service.ListEntriesInput) bool {
		return input.OrgID == "org-456" && input.Limit == 5
	})).Return(output, nil)

	req := requestWithOrgID(http.MethodGet, "/entries?limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["has_more"])
	assert.Equal(t, "next-cursor", data["cursor"])
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	matches := []domain.Match{
		{
			EntryID:    "e-123",
			Question:   "What consensus mechanism does the network use?",
			Answer:     "Proof of History combined with Proof of Stake.",
			Confidence: 1.0,
			Type:       domain.MatchTypeExact,
		},
	}
	mockSvc.On("Search", mock.Anything, "org-456", "What consensus mechanism does the network use?", 0.1).
		Return(matches, nil)

	body := `{"question":"What consensus mechanism does the network use?"}`
	req := requestWithOrgID(http.MethodPost, "/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	found := data["matches"].([]interface{})
	require.Len(t, found, 1)
	first := found[0].(map[string]interface{})
	assert.Equal(t, "exact", first["match_type"])
	assert.Equal(t, 1.0, first["confidence"])
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Search_CustomMinConfidence(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, "org-456", "Question?", 0.5).Return([]domain.Match{}, nil)

	body := `{"question":"Question?","min_confidence":0.5}`
	req := requestWithOrgID(http.MethodPost, "/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_Import_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	result := &service.ImportResult{Imported: 2, Skipped: 1, Failed: 0}
	mockSvc.On("ImportJSON", mock.Anything, "org-456", mock.Anything, "bob").Return(result, nil)

	body := `[{"question":"Q1?","answer":"A1"},{"question":"Q2?","answer":"A2"}]`
	req := requestWithOrgID(http.MethodPost, "/entries/import", []byte(body))
	req.Header.Set("X-User", "bob")
	w := httptest.NewRecorder()

	handler.Import(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["imported"])
	assert.Equal(t, float64(1), data["skipped"])
	mockSvc.AssertExpectations(t)
}

func TestEntryHandler_RebuildIndex_Success(t *testing.T) {
	mockSvc := new(MockEntryService)
	handler := NewEntryHandler(mockSvc)

	mockSvc.On("RebuildIndex", mock.Anything, "org-456").Return(42, nil)

	req := requestWithOrgID(http.MethodPost, "/entries/reindex", nil)
	w := httptest.NewRecorder()

	handler.RebuildIndex(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["indexed_entries"])
	mockSvc.AssertExpectations(t)
}
