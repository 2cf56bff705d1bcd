package service

import (
	"context"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/telemetry"
)

// VectorSearchResult is one pgvector similarity hit.
type VectorSearchResult struct {
	Entry *domain.Entry
	Score float32
}

// VectorSearchRepository defines the repository interface for embedding-based search
type VectorSearchRepository interface {
	SearchByEmbedding(ctx context.Context, orgID string, embedding []float32, limit int) ([]*VectorSearchResult, error)
}

// VectorSearchService answers "find entries like this text" via stored
// embeddings. It complements the lexical matcher: the matcher decides
// the answer for a question, vector search powers exploratory lookup in
// the knowledge management UI and the CLI.
type VectorSearchService struct {
	repo      VectorSearchRepository
	embedding EmbeddingClient
}

// NewVectorSearchService creates a new VectorSearchService instance
func NewVectorSearchService(repo VectorSearchRepository, embedding EmbeddingClient) *VectorSearchService {
	return &VectorSearchService{
		repo:      repo,
		embedding: embedding,
	}
}

// Search embeds the query and returns the closest entries by cosine
// distance.
func (s *VectorSearchService) Search(ctx context.Context, orgID, query string, limit int) ([]*VectorSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.Search", telemetry.SpanAttributes{
		OrgID:     orgID,
		Operation: "vector_search",
	})
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.repo.SearchByEmbedding(ctx, orgID, embedding, limit)
}
