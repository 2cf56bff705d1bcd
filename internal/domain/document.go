package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document is an uploaded RFP file kept in object storage, optionally
// linked to the submission produced from it.
type Document struct {
	ID           string
	OrgID        string
	SubmissionID string
	Filename     string
	MimeType     string
	SHA256       string
	StorageKey   string
	CreatedAt    time.Time
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.OrgID == "" {
		return fmt.Errorf("document OrgID is required")
	}

	if strings.TrimSpace(d.Filename) == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.StorageKey == "" {
		return fmt.Errorf("document StorageKey is required")
	}

	return nil
}
