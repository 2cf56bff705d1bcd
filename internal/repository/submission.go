package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/pagination"
	"github.com/ledgerworks/rfpd/internal/service"
)

const submissionColumns = `id, org_id, source, counterparty, filename, raw_text, status, error, created_at, processed_at`

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (id, org_id, source, counterparty, filename, raw_text, status, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.ID, sub.OrgID, sub.Source, nullableString(sub.Counterparty), nullableString(sub.Filename), sub.RawText, sub.Status, nullableString(sub.Error), sub.CreatedAt, sub.ProcessedAt,
	)
	return err
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	sub, err := scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubmissionRepository) Update(ctx context.Context, sub *domain.Submission) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET counterparty = $1, status = $2, error = $3, processed_at = $4
		 WHERE id = $5`,
		nullableString(sub.Counterparty), sub.Status, nullableString(sub.Error), sub.ProcessedAt, sub.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (r *SubmissionRepository) ListByOrgWithCursor(ctx context.Context, orgID string, cursor *pagination.Cursor, limit int) (*service.SubmissionPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.pool.Query(ctx,
			`SELECT `+submissionColumns+`
			 FROM submissions
			 WHERE org_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			orgID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+submissionColumns+`
			 FROM submissions
			 WHERE org_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			orgID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSubmissionRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.SubmissionPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListPending returns the oldest pending submissions for the worker to
// pick up.
func (r *SubmissionRepository) ListPending(ctx context.Context, limit int) ([]*domain.Submission, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		domain.SubmissionStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissionRows(rows)
}

// ReplaceFindings swaps a submission's findings in one transaction, so a
// reprocessed submission never shows a mix of old and new rows.
func (r *SubmissionRepository) ReplaceFindings(ctx context.Context, submissionID string, findings []*domain.Finding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM findings WHERE submission_id = $1`,
		submissionID,
	); err != nil {
		return err
	}

	for _, f := range findings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO findings (id, submission_id, position, question, answer, confidence, match_type, source, source_entry_id, source_question, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			f.ID, f.SubmissionID, f.Position, f.Question, f.Answer, f.Confidence, f.MatchType, f.Source, nullableString(f.SourceEntryID), nullableString(f.SourceQuestion), f.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *SubmissionRepository) ListFindings(ctx context.Context, submissionID string) ([]*domain.Finding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, position, question, answer, confidence, match_type, source, source_entry_id, source_question, created_at
		 FROM findings
		 WHERE submission_id = $1
		 ORDER BY position ASC`,
		submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []*domain.Finding
	for rows.Next() {
		var f domain.Finding
		var sourceEntryID, sourceQuestion pgtype.Text
		if err := rows.Scan(&f.ID, &f.SubmissionID, &f.Position, &f.Question, &f.Answer, &f.Confidence, &f.MatchType, &f.Source, &sourceEntryID, &sourceQuestion, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.SourceEntryID = sourceEntryID.String
		f.SourceQuestion = sourceQuestion.String
		findings = append(findings, &f)
	}
	return findings, rows.Err()
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	var counterparty, filename, errMsg pgtype.Text
	if err := row.Scan(&sub.ID, &sub.OrgID, &sub.Source, &counterparty, &filename, &sub.RawText, &sub.Status, &errMsg, &sub.CreatedAt, &sub.ProcessedAt); err != nil {
		return nil, err
	}
	sub.Counterparty = counterparty.String
	sub.Filename = filename.String
	sub.Error = errMsg.String
	return &sub, nil
}

func scanSubmissionRows(rows pgx.Rows) ([]*domain.Submission, error) {
	var results []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sub)
	}
	return results, rows.Err()
}
