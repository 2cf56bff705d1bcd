package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/export"
	"github.com/ledgerworks/rfpd/internal/pagination"
	"github.com/ledgerworks/rfpd/internal/telemetry"
)

// SubmissionRepositoryInterface defines the repository interface for submission persistence
type SubmissionRepositoryInterface interface {
	Create(ctx context.Context, sub *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	Update(ctx context.Context, sub *domain.Submission) error
	ListByOrgWithCursor(ctx context.Context, orgID string, cursor *pagination.Cursor, limit int) (*SubmissionPageResult, error)
	ListPending(ctx context.Context, limit int) ([]*domain.Submission, error)
	ReplaceFindings(ctx context.Context, submissionID string, findings []*domain.Finding) error
	ListFindings(ctx context.Context, submissionID string) ([]*domain.Finding, error)
}

type SubmissionPageResult struct {
	Items      []*domain.Submission
	NextCursor string
	HasMore    bool
}

// DocumentParser extracts plain text from an uploaded document.
// Implemented by the docparse package.
type DocumentParser interface {
	ExtractText(filename string, data []byte) (string, error)
}

// Answerer is the slice of AnswerService the submission pipeline needs.
type Answerer interface {
	ExtractQuestions(ctx context.Context, text string) []string
	AnswerQuestions(ctx context.Context, orgID string, questions []string) ([]*domain.Answer, error)
}

// SubmissionService runs the RFP intake pipeline: raw text (or a parsed
// document) in, a completed submission with per-question findings out.
type SubmissionService struct {
	submissionRepo SubmissionRepositoryInterface
	answerer       Answerer
	parser         DocumentParser
	uuidGen        UUIDGenerator
}

// NewSubmissionService creates a new SubmissionService instance
func NewSubmissionService(
	submissionRepo SubmissionRepositoryInterface,
	answerer Answerer,
	parser DocumentParser,
) *SubmissionService {
	return NewSubmissionServiceWithUUIDGen(submissionRepo, answerer, parser, &DefaultUUIDGenerator{})
}

// NewSubmissionServiceWithUUIDGen creates a new SubmissionService with custom UUID generator (for testing)
func NewSubmissionServiceWithUUIDGen(
	submissionRepo SubmissionRepositoryInterface,
	answerer Answerer,
	parser DocumentParser,
	uuidGen UUIDGenerator,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		answerer:       answerer,
		parser:         parser,
		uuidGen:        uuidGen,
	}
}

// CreateSubmissionInput represents the input for creating a submission from raw text
type CreateSubmissionInput struct {
	OrgID        string
	Source       domain.SubmissionSource
	Counterparty string
	Filename     string
	RawText      string
}

// CreateSubmission records a new pending submission. Processing happens
// asynchronously via the submission worker, or synchronously through
// Process.
func (s *SubmissionService) CreateSubmission(ctx context.Context, input CreateSubmissionInput) (*domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "SubmissionService.CreateSubmission", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		Operation: "create",
	})
	defer span.End()

	sub := &domain.Submission{
		ID:           s.uuidGen.NewString(),
		OrgID:        input.OrgID,
		Source:       input.Source,
		Counterparty: input.Counterparty,
		Filename:     input.Filename,
		RawText:      input.RawText,
		Status:       domain.SubmissionStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := domain.ValidateSubmission(sub); err != nil {
		return nil, err
	}

	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// CreateFromDocument parses an uploaded document into text and records a
// pending submission for it.
func (s *SubmissionService) CreateFromDocument(ctx context.Context, orgID, counterparty, filename string, data []byte) (*domain.Submission, error) {
	if s.parser == nil {
		return nil, domain.ErrUnsupportedDocumentFormat
	}

	text, err := s.parser.ExtractText(filename, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document contains no extractable text")
	}

	return s.CreateSubmission(ctx, CreateSubmissionInput{
		OrgID:        orgID,
		Source:       domain.SubmissionSourceDocument,
		Counterparty: counterparty,
		Filename:     filename,
		RawText:      text,
	})
}

// Process runs a submission through extraction and answering. Findings
// replace any previous ones for the submission; status moves to
// completed, or failed with the error recorded on the record.
func (s *SubmissionService) Process(ctx context.Context, submissionID string) (*domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "SubmissionService.Process", telemetry.SpanAttributes{
		SubmissionID: submissionID,
		Operation:    "process",
	})
	defer span.End()

	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	sub.Status = domain.SubmissionStatusProcessing
	sub.Error = ""
	if err := s.submissionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.process(ctx, sub); err != nil {
		sub.Status = domain.SubmissionStatusFailed
		sub.Error = err.Error()
		if updateErr := s.submissionRepo.Update(ctx, sub); updateErr != nil {
			return nil, fmt.Errorf("failed to mark submission failed: %w (processing error: %v)", updateErr, err)
		}
		return sub, err
	}

	now := time.Now().UTC()
	sub.Status = domain.SubmissionStatusCompleted
	sub.ProcessedAt = &now
	if err := s.submissionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *SubmissionService) process(ctx context.Context, sub *domain.Submission) error {
	questions := s.answerer.ExtractQuestions(ctx, sub.RawText)

	answers, err := s.answerer.AnswerQuestions(ctx, sub.OrgID, questions)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	findings := make([]*domain.Finding, 0, len(answers))
	for i, a := range answers {
		findings = append(findings, &domain.Finding{
			ID:             s.uuidGen.NewString(),
			SubmissionID:   sub.ID,
			Position:       i,
			Question:       a.Question,
			Answer:         a.Answer,
			Confidence:     a.Confidence,
			MatchType:      a.MatchType,
			Source:         a.Source,
			SourceEntryID:  a.SourceEntryID,
			SourceQuestion: a.SourceQuestion,
			CreatedAt:      now,
		})
	}

	return s.submissionRepo.ReplaceFindings(ctx, sub.ID, findings)
}

// GetSubmission retrieves a submission by ID
func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	return s.submissionRepo.GetByID(ctx, id)
}

// GetFindings retrieves the findings for a submission, in question order.
func (s *SubmissionService) GetFindings(ctx context.Context, submissionID string) ([]*domain.Finding, error) {
	if _, err := s.submissionRepo.GetByID(ctx, submissionID); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListFindings(ctx, submissionID)
}

type ListSubmissionsInput struct {
	OrgID  string
	Cursor string
	Limit  int
}

type ListSubmissionsOutput struct {
	Items   []*domain.Submission
	Cursor  string
	HasMore bool
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, input ListSubmissionsInput) (*ListSubmissionsOutput, error) {
	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.submissionRepo.ListByOrgWithCursor(ctx, input.OrgID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListSubmissionsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// ExportFormat selects the rendering for a completed submission.
type ExportFormat string

const (
	ExportFormatEmail ExportFormat = "email"
	ExportFormatDOCX  ExportFormat = "docx"
)

// Export renders a completed submission's findings as a reply email body
// or a DOCX document. Returns the payload and its content type.
func (s *SubmissionService) Export(ctx context.Context, submissionID string, format ExportFormat) ([]byte, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "SubmissionService.Export", telemetry.SpanAttributes{
		SubmissionID: submissionID,
		Operation:    "export",
	})
	defer span.End()

	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, "", err
	}
	if sub.Status != domain.SubmissionStatusCompleted {
		return nil, "", domain.ErrSubmissionNotCompleted
	}

	findings, err := s.submissionRepo.ListFindings(ctx, submissionID)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case ExportFormatEmail:
		body := export.ComposeEmail(sub, findings)
		return []byte(body), "text/plain; charset=utf-8", nil
	case ExportFormatDOCX:
		data, err := export.WriteDOCX(sub, findings)
		if err != nil {
			return nil, "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	default:
		return nil, "", domain.NewDomainError(domain.ErrCodeValidation, "unsupported export format")
	}
}
