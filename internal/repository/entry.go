package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/pagination"
	"github.com/ledgerworks/rfpd/internal/service"
)

const entryColumns = `id, org_id, question, answer, category, tags, active, created_at, updated_at, created_by, last_modified_by`

type EntryRepository struct {
	db dbtx
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

func NewEntryRepositoryWithTx(tx pgx.Tx) *EntryRepository {
	return &EntryRepository{db: tx}
}

func (r *EntryRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entries (id, org_id, question, answer, category, tags, active, created_at, updated_at, created_by, last_modified_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.OrgID, e.Question, e.Answer, nullableString(e.Category), e.Tags, e.Active, e.CreatedAt, e.UpdatedAt, nullableString(e.CreatedBy), nullableString(e.LastModifiedBy),
	)
	return err
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`,
		id,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *EntryRepository) ListActiveByOrg(ctx context.Context, orgID string) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE org_id = $1 AND active ORDER BY created_at ASC, id ASC`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *EntryRepository) ListByOrgWithCursor(ctx context.Context, orgID string, cursor *pagination.Cursor, limit int) (*service.EntryPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+entryColumns+`
			 FROM entries
			 WHERE org_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			orgID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+entryColumns+`
			 FROM entries
			 WHERE org_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			orgID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanEntryRows(rows)
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
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.EntryPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.Entry) error {
	e.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET question = $1, answer = $2, category = $3, tags = $4, active = $5, updated_at = $6, last_modified_by = $7
		 WHERE id = $8`,
		e.Question, e.Answer, nullableString(e.Category), e.Tags, e.Active, e.UpdatedAt, nullableString(e.LastModifiedBy), e.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// SearchByEmbedding returns the closest active entries by cosine distance.
// Entries without an embedding yet are skipped.
func (r *EntryRepository) SearchByEmbedding(ctx context.Context, orgID string, embedding []float32, limit int) ([]*service.VectorSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+`, 1 - (embedding <=> $2) AS score
		 FROM entries
		 WHERE org_id = $1 AND active AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		orgID, vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.VectorSearchResult
	for rows.Next() {
		var e domain.Entry
		var category, createdBy, modifiedBy pgtype.Text
		var score float32
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Question, &e.Answer, &category, &e.Tags, &e.Active, &e.CreatedAt, &e.UpdatedAt, &createdBy, &modifiedBy, &score); err != nil {
			return nil, err
		}
		e.Category = category.String
		e.CreatedBy = createdBy.String
		e.LastModifiedBy = modifiedBy.String
		results = append(results, &service.VectorSearchResult{Entry: &e, Score: score})
	}
	return results, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	var category, createdBy, modifiedBy pgtype.Text
	if err := row.Scan(&e.ID, &e.OrgID, &e.Question, &e.Answer, &category, &e.Tags, &e.Active, &e.CreatedAt, &e.UpdatedAt, &createdBy, &modifiedBy); err != nil {
		return nil, err
	}
	e.Category = category.String
	e.CreatedBy = createdBy.String
	e.LastModifiedBy = modifiedBy.String
	return &e, nil
}

func scanEntryRows(rows pgx.Rows) ([]*domain.Entry, error) {
	var results []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
