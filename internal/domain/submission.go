package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionSource identifies where a submission's raw text came from.
type SubmissionSource string

const (
	SubmissionSourceEmail    SubmissionSource = "email"
	SubmissionSourceDocument SubmissionSource = "document"
	SubmissionSourceAPI      SubmissionSource = "api"
)

// SubmissionStatus represents the processing state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "pending"
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusCompleted  SubmissionStatus = "completed"
	SubmissionStatusFailed     SubmissionStatus = "failed"
)

// Submission is a batch of raw RFP text (a pasted email body or text
// extracted from an uploaded document) queued for question extraction
// and answering.
type Submission struct {
	ID           string
	OrgID        string
	Source       SubmissionSource
	Counterparty string
	Filename     string
	RawText      string
	Status       SubmissionStatus
	Error        string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// Finding is one answered (or unanswered) question within a processed
// submission, in extraction order.
type Finding struct {
	ID             string
	SubmissionID   string
	Position       int
	Question       string
	Answer         string
	Confidence     float64
	MatchType      MatchType
	Source         AnswerSource
	SourceEntryID  string
	SourceQuestion string
	CreatedAt      time.Time
}

// ValidateSubmission validates a Submission instance.
func ValidateSubmission(s *Submission) error {
	if s == nil {
		return fmt.Errorf("submission cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("submission ID is required")
	}

	if s.OrgID == "" {
		return fmt.Errorf("submission OrgID is required")
	}

	if strings.TrimSpace(s.RawText) == "" {
		return fmt.Errorf("submission RawText is required")
	}

	if !isValidSubmissionSource(s.Source) {
		return fmt.Errorf("submission Source is invalid: %s", s.Source)
	}

	if !isValidSubmissionStatus(s.Status) {
		return fmt.Errorf("submission Status is invalid: %s", s.Status)
	}

	return nil
}

func isValidSubmissionSource(s SubmissionSource) bool {
	switch s {
	case SubmissionSourceEmail, SubmissionSourceDocument, SubmissionSourceAPI:
		return true
	}
	return false
}

func isValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusProcessing,
		SubmissionStatusCompleted, SubmissionStatusFailed:
		return true
	}
	return false
}
