package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/ledgerworks/rfpd/internal/domain"
)

const submissionBatchSize = 10

// SubmissionRepository lists submissions waiting to be processed.
type SubmissionRepository interface {
	ListPending(ctx context.Context, limit int) ([]*domain.Submission, error)
}

// SubmissionProcessor runs extraction and answering for one submission.
type SubmissionProcessor interface {
	Process(ctx context.Context, submissionID string) (*domain.Submission, error)
}

// SubmissionWorker drains pending submissions. Process marks each
// submission processing before doing work, so a crashed run leaves at
// most one submission stuck rather than silently dropping the batch.
type SubmissionWorker struct {
	repo      SubmissionRepository
	processor SubmissionProcessor
}

func NewSubmissionWorker(repo SubmissionRepository, processor SubmissionProcessor) *SubmissionWorker {
	return &SubmissionWorker{
		repo:      repo,
		processor: processor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *SubmissionWorker) ProcessJobs(ctx context.Context) error {
	pending, err := w.repo.ListPending(ctx, submissionBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending submissions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Processing %d pending submissions", len(pending))

	for _, sub := range pending {
		if _, err := w.processor.Process(ctx, sub.ID); err != nil {
			// Process records the failure on the submission itself.
			log.Printf("Error processing submission %s: %v", sub.ID, err)
		}
	}

	return nil
}
