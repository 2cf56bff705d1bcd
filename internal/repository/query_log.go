package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerworks/rfpd/internal/service"
)

// QueryLogRepository stores answered questions for evaluation and KB
// gap analysis.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO query_logs (org_id, question, source, match_type, confidence, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.OrgID,
		entry.Question,
		string(entry.Source),
		string(entry.MatchType),
		entry.Confidence,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
