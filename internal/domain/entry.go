package domain

import (
	"fmt"
	"strings"
	"time"
)

// Entry represents a curated question/answer pair in the knowledge base.
type Entry struct {
	ID             string
	OrgID          string
	Question       string
	Answer         string
	Category       string
	Tags           []string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      string
	LastModifiedBy string
}

// NewEntry creates a new active Entry instance.
func NewEntry(id, orgID, question, answer, category string, tags []string, createdBy string, now time.Time) *Entry {
	return &Entry{
		ID:             id,
		OrgID:          orgID,
		Question:       question,
		Answer:         answer,
		Category:       category,
		Tags:           tags,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      createdBy,
		LastModifiedBy: createdBy,
	}
}

// IndexText returns the text indexed for this entry: question, answer and
// tags joined with spaces. Matching and embeddings both operate on this.
func (e *Entry) IndexText() string {
	if len(e.Tags) == 0 {
		return e.Question + " " + e.Answer
	}
	return e.Question + " " + e.Answer + " " + strings.Join(e.Tags, " ")
}

// ValidateEntry validates an Entry instance.
func ValidateEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("entry ID is required")
	}

	if e.OrgID == "" {
		return fmt.Errorf("entry OrgID is required")
	}

	if strings.TrimSpace(e.Question) == "" {
		return fmt.Errorf("entry Question is required")
	}

	if strings.TrimSpace(e.Answer) == "" {
		return fmt.Errorf("entry Answer is required")
	}

	return nil
}
