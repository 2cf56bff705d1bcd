package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/rfpd/internal/api/middleware"
	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/service"
)

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) CreateSubmission(ctx context.Context, input service.CreateSubmissionInput) (*domain.Submission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) CreateFromDocument(ctx context.Context, orgID, counterparty, filename string, data []byte) (*domain.Submission, error) {
	args := m.Called(ctx, orgID, counterparty, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) Process(ctx context.Context, submissionID string) (*domain.Submission, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionService) GetFindings(ctx context.Context, submissionID string) ([]*domain.Finding, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Finding), args.Error(1)
}

func (m *MockSubmissionService) ListSubmissions(ctx context.Context, input service.ListSubmissionsInput) (*service.ListSubmissionsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListSubmissionsOutput), args.Error(1)
}

func (m *MockSubmissionService) Export(ctx context.Context, submissionID string, format service.ExportFormat) ([]byte, string, error) {
	args := m.Called(ctx, submissionID, format)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func newTestSubmissionResponse() *domain.Submission {
	now := time.Now().UTC()
	return &domain.Submission{
		ID:           "s-123",
		OrgID:        "org-456",
		Source:       domain.SubmissionSourceAPI,
		Counterparty: "Acme Corp",
		RawText:      "Do you support SSO? What uptime do you guarantee?",
		Status:       domain.SubmissionStatusPending,
		CreatedAt:    now,
	}
}

func TestSubmissionHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	expected := newTestSubmissionResponse()
	mockSvc.On("CreateSubmission", mock.Anything, mock.MatchedBy(func(input service.CreateSubmissionInput) bool {
		return input.OrgID == "org-456" && input.Source == domain.SubmissionSourceAPI && input.RawText != ""
	})).Return(expected, nil)

	body := `{"counterparty":"Acme Corp","raw_text":"Do you support SSO? What uptime do you guarantee?"}`
	req := requestWithOrgID(http.MethodPost, "/submissions", []byte(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "s-123", data["id"])
	assert.Equal(t, "pending", data["status"])
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Create_MissingRawText(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	req := requestWithOrgID(http.MethodPost, "/submissions", []byte(`{"counterparty":"Acme"}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "raw_text is required")
}

func TestSubmissionHandler_Upload_Success(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	expected := newTestSubmissionResponse()
	expected.Source = domain.SubmissionSourceDocument
	expected.Filename = "rfp.pdf"
	mockSvc.On("CreateFromDocument", mock.Anything, "org-456", "Acme Corp", "rfp.pdf", []byte("%PDF-1.4 fake")).
		Return(expected, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "rfp.pdf")
	require.NoError(t, err)
	part.Write([]byte("%PDF-1.4 fake"))
	mw.WriteField("counterparty", "Acme Corp")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.OrgIDKey, "org-456")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Upload_MissingFile(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("counterparty", "Acme Corp")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.OrgIDKey, "org-456")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestSubmissionHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	mockSvc.On("GetSubmission", mock.Anything, "s-999").Return(nil, domain.ErrSubmissionNotFound)

	req := httptest.NewRequest(http.MethodGet, "/submissions/s-999", nil)
	req = requestWithURLParam(req, "id", "s-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Findings_Success(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	findings := []*domain.Finding{
		{
			ID:           "f-1",
			SubmissionID: "s-123",
			Position:     0,
			Question:     "Do you support SSO?",
			Answer:       "Yes, via SAML and OIDC.",
			Confidence:   1.0,
			MatchType:    domain.MatchTypeExact,
		},
		{
			ID:           "f-2",
			SubmissionID: "s-123",
			Position:     1,
			Question:     "What uptime do you guarantee?",
			Answer:       "",
			MatchType:    domain.MatchTypeNoAnswer,
		},
	}
	mockSvc.On("GetFindings", mock.Anything, "s-123").Return(findings, nil)

	req := httptest.NewRequest(http.MethodGet, "/submissions/s-123/findings", nil)
	req = requestWithURLParam(req, "id", "s-123")
	w := httptest.NewRecorder()

	handler.Findings(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	list := data["findings"].([]interface{})
	require.Len(t, list, 2)
	second := list[1].(map[string]interface{})
	assert.Equal(t, "no_answer", second["match_type"])
	assert.Equal(t, float64(1), second["position"])
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_List_Success(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	output := &service.ListSubmissionsOutput{
		Items:   []*domain.Submission{newTestSubmissionResponse()},
		HasMore: false,
	}
	mockSvc.On("ListSubmissions", mock.Anything, mock.MatchedBy(func(input service.ListSubmissionsInput) bool {
		return input.OrgID == "org-456" && input.Limit == 20
	})).Return(output, nil)

	req := requestWithOrgID(http.MethodGet, "/submissions", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Process_Success(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	processed := newTestSubmissionResponse()
	processed.Status = domain.SubmissionStatusCompleted
	now := time.Now().UTC()
	processed.ProcessedAt = &now
	mockSvc.On("Process", mock.Anything, "s-123").Return(processed, nil)

	req := requestWithOrgID(http.MethodPost, "/submissions/s-123/process", nil)
	req = requestWithURLParam(req, "id", "s-123")
	w := httptest.NewRecorder()

	handler.Process(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.NotEmpty(t, data["processed_at"])
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Export_Email(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	payload := []byte("Q: Do you support SSO?\nA: Yes, via SAML and OIDC.\n")
	mockSvc.On("Export", mock.Anything, "s-123", service.ExportFormatEmail).
		Return(payload, "text/plain; charset=utf-8", nil)

	req := requestWithOrgID(http.MethodGet, "/submissions/s-123/export?format=email", nil)
	req = requestWithURLParam(req, "id", "s-123")
	w := httptest.NewRecorder()

	handler.Export(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "submission-s-123.txt")
	assert.Equal(t, payload, w.Body.Bytes())
	mockSvc.AssertExpectations(t)
}

func TestSubmissionHandler_Export_InvalidFormat(t *testing.T) {
	mockSvc := new(MockSubmissionService)
	handler := NewSubmissionHandler(mockSvc)

	req := requestWithOrgID(http.MethodGet, "/submissions/s-123/export?format=xlsx", nil)
	req = requestWithURLParam(req, "id", "s-123")
	w := httptest.NewRecorder()

	handler.Export(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "format must be email or docx")
}
